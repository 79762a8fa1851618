package discord

import (
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	embedColor      = 0x5865F2
	embedColorAlert = 0xED4245
	footerText      = "signupd"
)

// alertTypes are shown in red.
var alertTypes = map[string]bool{
	"offer-expired":      true,
	"instance-cancelled": true,
	"signup-removed":     true,
}

// BuildNotificationEmbed builds the DM embed for one notification.
func BuildNotificationEmbed(msgType, title, body string, at time.Time) *discordgo.MessageEmbed {
	color := embedColor
	if alertTypes[msgType] {
		color = embedColorAlert
	}
	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: body,
		Color:       color,
		Footer:      &discordgo.MessageEmbedFooter{Text: footerText},
	}
	if !at.IsZero() {
		embed.Timestamp = at.UTC().Format(time.RFC3339)
	}
	return embed
}

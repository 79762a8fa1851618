// Package discord delivers participant notifications as Discord direct
// messages.
package discord

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"signupd/internal/domain/entities"
	"signupd/internal/ports/output"
	pkgdiscord "signupd/pkg/discord"
)

var _ output.Sink = (*DMSink)(nil)

// ParticipantPrefix marks participant ids that are Discord user ids.
const ParticipantPrefix = "discord:"

type session interface {
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type renderer interface {
	Render(msg entities.Message) (title, body string)
}

// DMSink sends participant messages to participants whose id carries the
// discord: prefix. Other participants are skipped.
type DMSink struct {
	session  session
	renderer renderer

	mu       sync.Mutex
	channels map[string]string // user id -> DM channel id
}

func NewDMSink(s session, r renderer) *DMSink {
	return &DMSink{session: s, renderer: r, channels: map[string]string{}}
}

func (d *DMSink) Name() string { return "discord" }

// UserID extracts the Discord user id of a participant.
func UserID(participantID string) (string, bool) {
	id, ok := strings.CutPrefix(participantID, ParticipantPrefix)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

func (d *DMSink) Send(ctx context.Context, msg entities.Message) error {
	if msg.Audience != entities.AudienceParticipant {
		return nil
	}
	userID, ok := UserID(msg.ParticipantID)
	if !ok {
		return nil
	}
	channelID, err := d.dmChannel(ctx, userID)
	if err != nil {
		return err
	}
	title, body := d.renderer.Render(msg)
	embed := pkgdiscord.BuildNotificationEmbed(string(msg.Type), title, body, msg.CreatedAt)
	if _, err := d.session.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send DM: %w", err)
	}
	return nil
}

func (d *DMSink) dmChannel(ctx context.Context, userID string) (string, error) {
	d.mu.Lock()
	id, ok := d.channels[userID]
	d.mu.Unlock()
	if ok {
		return id, nil
	}
	ch, err := d.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("create DM channel: %w", err)
	}
	if ch == nil {
		return "", fmt.Errorf("create DM channel: no channel for user %s", userID)
	}
	d.mu.Lock()
	d.channels[userID] = ch.ID
	d.mu.Unlock()
	return ch.ID, nil
}

package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

// OpenSession creates and opens a bot session able to send direct messages.
func OpenSession(token string, log logrus.FieldLogger) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsDirectMessages
	if err := s.Open(); err != nil {
		return nil, fmt.Errorf("open discord session: %w", err)
	}
	if s.State != nil && s.State.User != nil {
		log.WithField("user", s.State.User.Username).Info("discord session open")
	}
	return s, nil
}

package notify

import (
	"context"
	"fmt"

	"signupd/internal/domain/entities"
	"signupd/internal/ports/output"
)

var _ output.Sink = (*InboxSink)(nil)

// InboxSink renders participant messages and stores them as notifications.
// Instance-wide messages have no recipient and are skipped.
type InboxSink struct {
	repo     output.NotificationRepository
	renderer *Renderer
}

func NewInboxSink(repo output.NotificationRepository, renderer *Renderer) *InboxSink {
	return &InboxSink{repo: repo, renderer: renderer}
}

func (s *InboxSink) Name() string { return "inbox" }

func (s *InboxSink) Send(ctx context.Context, msg entities.Message) error {
	if msg.Audience != entities.AudienceParticipant || msg.ParticipantID == "" {
		return nil
	}
	title, body := s.renderer.Render(msg)
	n := &entities.Notification{
		MessageID:     msg.ID,
		ParticipantID: msg.ParticipantID,
		Type:          msg.Type,
		InstanceID:    msg.InstanceID,
		EventID:       msg.EventID,
		Title:         title,
		Body:          body,
		CreatedAt:     msg.CreatedAt,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	return nil
}

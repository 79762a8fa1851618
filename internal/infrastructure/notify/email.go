package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"signupd/internal/domain/entities"
	"signupd/internal/ports/output"
)

var _ output.Sink = (*EmailSink)(nil)

// EmailJob is what the mailer consumes from the queue.
type EmailJob struct {
	MessageID     string    `json:"message_id"`
	ParticipantID string    `json:"participant_id"`
	Type          string    `json:"type"`
	Locale        string    `json:"locale"`
	Subject       string    `json:"subject"`
	Body          string    `json:"body"`
	CreatedAt     time.Time `json:"created_at"`
}

type amqpPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// EmailSink queues a rendered email job for every participant message on a
// durable RabbitMQ queue.
type EmailSink struct {
	mu        sync.Mutex
	ch        amqpPublisher
	queue     string
	renderer  *Renderer
	closeFunc func() error
}

func NewEmailSink(ch amqpPublisher, queue string, renderer *Renderer) *EmailSink {
	return &EmailSink{ch: ch, queue: queue, renderer: renderer}
}

// DialEmailSink connects to RabbitMQ and declares the durable queue.
func DialEmailSink(url, queue string, renderer *Renderer) (*EmailSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	q, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{"x-queue-mode": "lazy"},
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}
	s := NewEmailSink(ch, q.Name, renderer)
	s.closeFunc = func() error {
		chErr := ch.Close()
		connErr := conn.Close()
		if chErr != nil {
			return chErr
		}
		return connErr
	}
	return s, nil
}

func (s *EmailSink) Name() string { return "email" }

func (s *EmailSink) Send(ctx context.Context, msg entities.Message) error {
	if msg.Audience != entities.AudienceParticipant || msg.ParticipantID == "" {
		return nil
	}
	subject, body := s.renderer.Render(msg)
	job, err := json.Marshal(EmailJob{
		MessageID:     msg.ID,
		ParticipantID: msg.ParticipantID,
		Type:          string(msg.Type),
		Locale:        s.renderer.Locale(msg),
		Subject:       subject,
		Body:          body,
		CreatedAt:     msg.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email job: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err = s.ch.PublishWithContext(
		ctx,
		"",      // exchange
		s.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    msg.ID,
			Type:         string(msg.Type),
			Body:         job,
			DeliveryMode: amqp.Persistent,
			Timestamp:    msg.CreatedAt,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish email job: %w", err)
	}
	return nil
}

func (s *EmailSink) Close() error {
	if s.closeFunc == nil {
		return nil
	}
	return s.closeFunc()
}

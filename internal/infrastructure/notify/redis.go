package notify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"signupd/internal/domain/entities"
	"signupd/internal/ports/output"
)

var _ output.Sink = (*RedisSink)(nil)

const DefaultChannelPrefix = "signups"

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisSink pushes every message to live subscribers over Redis pub/sub:
// instance messages on <prefix>:instance:<id>, participant messages on
// <prefix>:participant:<id>.
type RedisSink struct {
	client redisPublisher
	prefix string
}

func NewRedisSink(client redisPublisher, prefix string) *RedisSink {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return &RedisSink{client: client, prefix: prefix}
}

// NewRedisClient parses url (redis://...) and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (s *RedisSink) Name() string { return "redis" }

// Channel returns the pub/sub channel msg is published on.
func (s *RedisSink) Channel(msg entities.Message) string {
	if msg.Audience == entities.AudienceParticipant {
		return fmt.Sprintf("%s:participant:%s", s.prefix, msg.ParticipantID)
	}
	if msg.InstanceID == 0 && msg.EventID != 0 {
		return fmt.Sprintf("%s:event:%d", s.prefix, msg.EventID)
	}
	return fmt.Sprintf("%s:instance:%d", s.prefix, msg.InstanceID)
}

func (s *RedisSink) Send(ctx context.Context, msg entities.Message) error {
	body, err := NewPayload(msg).Marshal()
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if err := s.client.Publish(ctx, s.Channel(msg), body).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

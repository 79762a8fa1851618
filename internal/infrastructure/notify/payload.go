package notify

import (
	"encoding/json"
	"time"

	"signupd/internal/domain/entities"
)

// Payload is the JSON form of a message on the live and email channels.
// Consumers drop duplicates by ID.
type Payload struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	Audience      string         `json:"audience"`
	ParticipantID string         `json:"participant_id,omitempty"`
	InstanceID    uint           `json:"instance_id,omitempty"`
	EventID       uint           `json:"event_id,omitempty"`
	SignupID      uint           `json:"signup_id,omitempty"`
	Data          map[string]any `json:"data,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

func NewPayload(msg entities.Message) Payload {
	return Payload{
		ID:            msg.ID,
		Type:          string(msg.Type),
		Audience:      string(msg.Audience),
		ParticipantID: msg.ParticipantID,
		InstanceID:    msg.InstanceID,
		EventID:       msg.EventID,
		SignupID:      msg.SignupID,
		Data:          msg.Data,
		CreatedAt:     msg.CreatedAt,
	}
}

func (p Payload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

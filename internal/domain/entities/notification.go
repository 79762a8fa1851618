package entities

import "time"

// MessageType names an outbound event emitted after a state transition.
type MessageType string

const (
	MsgSignupCreated     MessageType = "signup-created"
	MsgSignupUpdated     MessageType = "signup-updated"
	MsgSignupConfirmed   MessageType = "signup-confirmed"
	MsgSignupWaitlisted  MessageType = "signup-waitlisted"
	MsgSignupRemoved     MessageType = "signup-removed"
	MsgOfferIssued       MessageType = "offer-issued"
	MsgOfferAccepted     MessageType = "offer-accepted"
	MsgOfferDeclined     MessageType = "offer-declined"
	MsgOfferExpired      MessageType = "offer-expired"
	MsgInstanceCancelled MessageType = "instance-cancelled"
	MsgInstanceCompleted MessageType = "instance-completed"
	MsgEventPublished    MessageType = "event-published"
)

// Audience tells sinks who a message is for.
type Audience string

const (
	// AudienceInstance messages feed live views of an instance.
	AudienceInstance Audience = "instance"
	// AudienceParticipant messages become a notification for one participant.
	AudienceParticipant Audience = "participant"
)

// Message is what the core hands to the notifier after a commit. Delivery is
// at-least-once; ID lets consumers drop duplicates.
type Message struct {
	ID            string
	Type          MessageType
	Audience      Audience
	ParticipantID string
	InstanceID    uint
	EventID       uint
	SignupID      uint
	Locale        string
	Data          map[string]any
	CreatedAt     time.Time
}

// Notification is the inbox record kept for a participant.
type Notification struct {
	ID            uint
	MessageID     string
	ParticipantID string
	Type          MessageType
	InstanceID    uint
	EventID       uint
	Title         string
	Body          string
	ReadAt        time.Time // zero = unread
	CreatedAt     time.Time
}

func (n *Notification) IsRead() bool {
	return !n.ReadAt.IsZero()
}

package input

import (
	"context"
	"time"

	"signupd/internal/domain/entities"
)

type CreateEventInput struct {
	Title       string `validate:"required,max=200"`
	Description string `validate:"max=5000"`
	// ScheduledPublishDate, when set, creates the event SCHEDULED instead of DRAFT.
	ScheduledPublishDate time.Time
}

type CreateInstanceInput struct {
	EventID         uint `validate:"required"`
	StartDate       time.Time
	EndDate         time.Time
	StudentCapacity int `validate:"gte=0"`
	ParentCapacity  int `validate:"gte=0"`
	WaitlistEnabled bool
}

type CapacityInput struct {
	StudentCapacity int `validate:"gte=0"`
	ParentCapacity  int `validate:"gte=0"`
}

// PoolAvailability summarizes one role pool of an instance.
type PoolAvailability struct {
	Role      entities.Role
	Capacity  int
	Confirmed int
	Pending   int
	Waitlist  int
	Remaining int
}

// EventUseCase groups the administrative operations on events and instances.
type EventUseCase interface {
	CreateEvent(ctx context.Context, actor entities.Actor, in CreateEventInput) (*entities.Event, error)
	PublishEvent(ctx context.Context, actor entities.Actor, eventID uint) (*entities.Event, error)
	CreateInstance(ctx context.Context, actor entities.Actor, in CreateInstanceInput) (*entities.Instance, error)
	UpdateCapacity(ctx context.Context, actor entities.Actor, instanceID uint, in CapacityInput) (*entities.Instance, error)
	SetWaitlistEnabled(ctx context.Context, actor entities.Actor, instanceID uint, enabled bool) (*entities.Instance, error)
	SetInstanceEnabled(ctx context.Context, actor entities.Actor, instanceID uint, enabled bool) (*entities.Instance, error)
	CancelInstance(ctx context.Context, actor entities.Actor, instanceID uint) (*entities.Instance, error)
	CompleteInstance(ctx context.Context, actor entities.Actor, instanceID uint) (*entities.Instance, error)
	Availability(ctx context.Context, instanceID uint) ([]PoolAvailability, error)
}

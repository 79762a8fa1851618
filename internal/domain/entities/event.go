package entities

import "time"

type EventStatus string

const (
	EventDraft     EventStatus = "DRAFT"
	EventScheduled EventStatus = "SCHEDULED"
	EventPublished EventStatus = "PUBLISHED"
)

type InstanceStatus string

const (
	InstanceActive    InstanceStatus = "ACTIVE"
	InstanceCompleted InstanceStatus = "COMPLETED"
	InstanceCancelled InstanceStatus = "CANCELLED"
)

// Event owns one or more instances. Only published events accept signups from
// non-administrators.
type Event struct {
	ID                   uint
	CreatorID            string
	Title                string
	Description          string
	Status               EventStatus
	ScheduledPublishDate time.Time // zero = no publication scheduled
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (e *Event) IsPublished() bool {
	return e.Status == EventPublished
}

// PublishDue reports whether a scheduled publication should happen at now.
func (e *Event) PublishDue(now time.Time) bool {
	return e.Status == EventScheduled && !e.ScheduledPublishDate.IsZero() && !e.ScheduledPublishDate.After(now)
}

// Instance is a single scheduled occurrence of an event with per-role capacity.
type Instance struct {
	ID              uint
	EventID         uint
	StartDate       time.Time // zero = not scheduled yet
	EndDate         time.Time
	StudentCapacity int
	ParentCapacity  int
	Enabled         bool
	WaitlistEnabled bool
	Status          InstanceStatus
	CancelledAt     time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Capacity returns the capacity of role's pool.
func (i *Instance) Capacity(role Role) int {
	switch role {
	case RoleStudent:
		return i.StudentCapacity
	case RoleParent:
		return i.ParentCapacity
	default:
		return 0
	}
}

func (i *Instance) SetCapacity(role Role, capacity int) {
	switch role {
	case RoleStudent:
		i.StudentCapacity = capacity
	case RoleParent:
		i.ParentCapacity = capacity
	}
}

func (i *Instance) IsOpen() bool {
	return i.Status == InstanceActive
}

// Started reports whether the instance start time has passed at now.
func (i *Instance) Started(now time.Time) bool {
	return !i.StartDate.IsZero() && !i.StartDate.After(now)
}

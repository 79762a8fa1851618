package entities

import "time"

// Role selects the capacity pool and waitlist a signup belongs to.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleParent  Role = "PARENT"
)

// Roles lists every role pool, in a stable order.
var Roles = []Role{RoleStudent, RoleParent}

func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleParent
}

type SignupStatus string

const (
	StatusConfirmed       SignupStatus = "CONFIRMED"
	StatusWaitlist        SignupStatus = "WAITLIST"
	StatusWaitlistPending SignupStatus = "WAITLIST_PENDING"
	StatusCancelled       SignupStatus = "CANCELLED"
)

// ReservedStatuses are the statuses that consume a slot of the role pool.
var ReservedStatuses = []SignupStatus{StatusConfirmed, StatusWaitlistPending}

// Signup represents a participant's place on an event instance.
type Signup struct {
	ID            uint
	InstanceID    uint
	ParticipantID string
	Role          Role
	Status        SignupStatus
	// SignupDate orders the waitlist. It is reset when an offer is accepted.
	SignupDate         time.Time
	WaitlistNotifiedAt time.Time // zero unless Status is WAITLIST_PENDING
	CancelledAt        time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (s *Signup) IsActive() bool {
	return s.Status != StatusCancelled
}

// HoldsReservation reports whether the signup consumes a slot of its role pool.
func (s *Signup) HoldsReservation() bool {
	return s.Status == StatusConfirmed || s.Status == StatusWaitlistPending
}

// OfferExpired reports whether a pending offer issued at WaitlistNotifiedAt is
// older than window at now.
func (s *Signup) OfferExpired(now time.Time, window time.Duration) bool {
	if s.Status != StatusWaitlistPending || s.WaitlistNotifiedAt.IsZero() {
		return false
	}
	return now.Sub(s.WaitlistNotifiedAt) > window
}

package domain

import "signupd/internal/domain/entities"

// Decision is the outcome of a capacity check for a new signup.
type Decision int

const (
	DecisionRejected Decision = iota
	DecisionConfirmed
	DecisionWaitlist
)

func (d Decision) String() string {
	switch d {
	case DecisionConfirmed:
		return "confirmed"
	case DecisionWaitlist:
		return "waitlist"
	default:
		return "rejected"
	}
}

// Status returns the signup status a decision maps to. Rejected has none.
func (d Decision) Status() (entities.SignupStatus, bool) {
	switch d {
	case DecisionConfirmed:
		return entities.StatusConfirmed, true
	case DecisionWaitlist:
		return entities.StatusWaitlist, true
	default:
		return "", false
	}
}

// Decide places a new signup given the reserved count (CONFIRMED plus
// WAITLIST_PENDING) of the signer's role pool. The count must be read in the
// transaction that performs the write.
func Decide(reserved, capacity int, waitlistEnabled bool) Decision {
	if reserved < capacity {
		return DecisionConfirmed
	}
	if waitlistEnabled {
		return DecisionWaitlist
	}
	return DecisionRejected
}

// FreeSlots returns how many reservations a pool can still take, never negative.
func FreeSlots(reserved, capacity int) int {
	if reserved >= capacity {
		return 0
	}
	return capacity - reserved
}

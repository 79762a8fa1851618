package domain

import "errors"

// Kind is the stable category of a domain error. The calling layer maps each
// kind to its own status (HTTP code, gRPC code, chat reply) without parsing
// messages.
type Kind string

const (
	KindNotFound    Kind = "not_found"
	KindForbidden   Kind = "forbidden"
	KindConflict    Kind = "conflict"
	KindRateLimited Kind = "rate_limited"
	KindExpired     Kind = "expired"
	KindValidation  Kind = "validation"
	KindTransient   Kind = "transient"
)

// Error is a domain error carrying a kind and a stable code.
// Two errors match under errors.Is when their codes are equal, so a wrapped
// copy (see Wrap) still matches its sentinel.
type Error struct {
	Kind Kind
	Code string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Wrap returns a copy of the sentinel carrying cause.
func (e *Error) Wrap(cause error) error {
	return &Error{Kind: e.Kind, Code: e.Code, Msg: e.Msg, Err: cause}
}

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Msg: msg}
}

// Domain errors.
var (
	ErrEventNotFound        = newError(KindNotFound, "event_not_found", "event not found")
	ErrInstanceNotFound     = newError(KindNotFound, "instance_not_found", "event instance not found")
	ErrSignupNotFound       = newError(KindNotFound, "signup_not_found", "signup not found")
	ErrNoPendingOffer       = newError(KindNotFound, "no_pending_offer", "no pending waitlist offer")
	ErrNotificationNotFound = newError(KindNotFound, "notification_not_found", "notification not found")

	ErrEventNotPublished = newError(KindForbidden, "event_not_published", "event is not published")
	ErrInstanceDisabled  = newError(KindForbidden, "instance_disabled", "event instance is disabled")
	ErrInstanceCancelled = newError(KindForbidden, "instance_cancelled", "event instance is cancelled")
	ErrInstanceClosed    = newError(KindForbidden, "instance_closed", "event instance is no longer active")
	ErrNotOwner          = newError(KindForbidden, "not_owner", "only the participant or an administrator can do this")
	ErrAdminOnly         = newError(KindForbidden, "admin_only", "only an administrator can do this")

	ErrSignupExists          = newError(KindConflict, "signup_exists", "participant already signed up")
	ErrSignupNotActive       = newError(KindConflict, "signup_not_active", "signup is already cancelled")
	ErrCapacityFull          = newError(KindConflict, "capacity_full", "full, waitlist disabled")
	ErrCapacityChanged       = newError(KindConflict, "capacity_changed", "capacity is no longer available")
	ErrCannotReduceCapacity  = newError(KindConflict, "cannot_reduce_capacity", "capacity cannot go below reserved signups")
	ErrEventAlreadyPublished = newError(KindConflict, "event_already_published", "event is already published")

	ErrResignupTooSoon = newError(KindRateLimited, "resignup_too_soon", "signed up again too quickly")

	ErrOfferExpired = newError(KindExpired, "offer_expired", "waitlist offer has expired")

	ErrInvalidInput = newError(KindValidation, "invalid_input", "invalid input")

	ErrTransient = newError(KindTransient, "transient", "temporary storage failure")
)

// KindOf returns the kind of the first domain error in err's chain, or "" when
// err is not a domain error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// Code returns the stable code of the first domain error in err's chain.
func Code(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsTransient reports whether err may succeed when the whole operation is retried.
func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}

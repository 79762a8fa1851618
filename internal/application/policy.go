package application

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"signupd/internal/ports/output"
)

const (
	DefaultOfferWindow      = 12 * time.Hour
	DefaultResignupDebounce = 5 * time.Second
	DefaultMaxAttempts      = 3
	DefaultRetryBaseDelay   = 100 * time.Millisecond
)

// Policy holds the timing contract of the signup core.
type Policy struct {
	OfferWindow      time.Duration
	ResignupDebounce time.Duration
	MaxAttempts      int
	RetryBaseDelay   time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		OfferWindow:      DefaultOfferWindow,
		ResignupDebounce: DefaultResignupDebounce,
		MaxAttempts:      DefaultMaxAttempts,
		RetryBaseDelay:   DefaultRetryBaseDelay,
	}
}

// Clock returns the current time. Tests replace it.
type Clock func() time.Time

// Deps are the collaborators shared by every service.
type Deps struct {
	Store    output.Store
	Notifier output.Notifier
	Policy   Policy
	Clock    Clock
	Logger   logrus.FieldLogger
}

func (d Deps) withDefaults() Deps {
	if d.Policy == (Policy{}) {
		d.Policy = DefaultPolicy()
	}
	if d.Clock == nil {
		d.Clock = func() time.Time { return time.Now().UTC() }
	}
	if d.Logger == nil {
		d.Logger = logrus.StandardLogger()
	}
	if d.Notifier == nil {
		d.Notifier = discardNotifier{}
	}
	return d
}

var validate = validator.New(validator.WithRequiredStructEnabled())

package output

import "context"

// Repos groups the repositories bound to one transaction (or to none).
type Repos struct {
	Events        EventRepository
	Instances     InstanceRepository
	Signups       SignupRepository
	Notifications NotificationRepository
}

// Store is the transactional relational store. WithinTx runs fn in a
// transaction with at least read-committed isolation; returning an error
// rolls it back. Failures the caller may retry are reported as
// domain.ErrTransient.
type Store interface {
	Repos() Repos
	WithinTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
}

// Package memory is an in-process implementation of the store port used by
// tests and by `serve --store=memory`. One mutex serialises every
// transaction; a failed transaction restores the snapshot taken when it began.
package memory

import (
	"context"
	"maps"
	"sync"

	"signupd/internal/domain/entities"
	"signupd/internal/ports/output"
)

var _ output.Store = (*Store)(nil)

type state struct {
	nextEventID        uint
	nextInstanceID     uint
	nextSignupID       uint
	nextNotificationID uint

	events        map[uint]entities.Event
	instances     map[uint]entities.Instance
	signups       map[uint]entities.Signup
	notifications map[uint]entities.Notification
}

func newState() *state {
	return &state{
		events:        map[uint]entities.Event{},
		instances:     map[uint]entities.Instance{},
		signups:       map[uint]entities.Signup{},
		notifications: map[uint]entities.Notification{},
	}
}

// clone copies the maps; entities hold no shared pointers so a shallow copy of
// each value is enough.
func (s *state) clone() *state {
	c := *s
	c.events = maps.Clone(s.events)
	c.instances = maps.Clone(s.instances)
	c.signups = maps.Clone(s.signups)
	c.notifications = maps.Clone(s.notifications)
	return &c
}

type Store struct {
	mu    sync.Mutex
	state *state
}

func NewStore() *Store {
	return &Store{state: newState()}
}

// Repos returns repositories that take the store lock on every call. They must
// not be used from inside WithinTx.
func (s *Store) Repos() output.Repos {
	return s.repos(false)
}

func (s *Store) repos(inTx bool) output.Repos {
	b := base{store: s, inTx: inTx}
	return output.Repos{
		Events:        &eventRepo{b},
		Instances:     &instanceRepo{b},
		Signups:       &signupRepo{b},
		Notifications: &notificationRepo{b},
	}
}

// WithinTx runs fn with the store locked. Any error rolls every write back.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, r output.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(ctx, s.repos(true)); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

type base struct {
	store *Store
	inTx  bool
}

func (b base) with(fn func(st *state) error) error {
	if !b.inTx {
		b.store.mu.Lock()
		defer b.store.mu.Unlock()
	}
	return fn(b.store.state)
}

package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"signupd/internal/domain/entities"
	"signupd/internal/infrastructure/memory"
	"signupd/internal/ports/input"
	"signupd/internal/ports/output"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

var admin = entities.Actor{ParticipantID: "admin", Role: entities.RoleStudent, IsAdmin: true}

func student(id string) entities.Actor {
	return entities.Actor{ParticipantID: id, Role: entities.RoleStudent}
}

func parent(id string) entities.Actor {
	return entities.Actor{ParticipantID: id, Role: entities.RoleParent}
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recorder is a Notifier keeping every published message.
type recorder struct {
	mu   sync.Mutex
	msgs []entities.Message
}

func (r *recorder) Publish(_ context.Context, msgs ...entities.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msgs...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = nil
}

// to returns the types of the participant messages sent to participantID.
func (r *recorder) to(participantID string) []entities.MessageType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entities.MessageType
	for _, m := range r.msgs {
		if m.Audience == entities.AudienceParticipant && m.ParticipantID == participantID {
			out = append(out, m.Type)
		}
	}
	return out
}

func (r *recorder) count(typ entities.MessageType, audience entities.Audience) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.msgs {
		if m.Type == typ && m.Audience == audience {
			n++
		}
	}
	return n
}

type harness struct {
	t        *testing.T
	ctx      context.Context
	store    *memory.Store
	clock    *testClock
	notes    *recorder
	deps     Deps
	signups  *SignupService
	events   *EventService
	inbox    *NotificationService
	sweeper  *Sweeper
	promoter *Promoter
}

func newHarness(t *testing.T) *harness {
	return newHarnessWithStore(t, nil)
}

// newHarnessWithStore builds the services on wrap(memory store) when wrap is
// set, so tests can inject store failures.
func newHarnessWithStore(t *testing.T, wrap func(output.Store) output.Store) *harness {
	t.Helper()
	log, _ := test.NewNullLogger()
	h := &harness{
		t:     t,
		ctx:   context.Background(),
		store: memory.NewStore(),
		clock: &testClock{now: t0},
		notes: &recorder{},
	}
	var store output.Store = h.store
	if wrap != nil {
		store = wrap(h.store)
	}
	policy := DefaultPolicy()
	policy.RetryBaseDelay = time.Millisecond
	h.deps = Deps{Store: store, Notifier: h.notes, Policy: policy, Clock: h.clock.Now, Logger: log}
	h.promoter = NewPromoter(log)
	h.signups = NewSignupService(h.deps, h.promoter)
	h.events = NewEventService(h.deps, h.promoter)
	h.inbox = NewNotificationService(h.deps)
	h.sweeper = NewSweeper(h.deps, h.promoter, 4, 100)
	return h
}

type instanceOpts struct {
	students, parents int
	waitlist          bool
	unpublished       bool
	start             time.Time
}

// instance creates a published event with one instance.
func (h *harness) instance(o instanceOpts) *entities.Instance {
	h.t.Helper()
	event, err := h.events.CreateEvent(h.ctx, admin, input.CreateEventInput{Title: "Open day"})
	require.NoError(h.t, err)
	if !o.unpublished {
		_, err = h.events.PublishEvent(h.ctx, admin, event.ID)
		require.NoError(h.t, err)
	}
	inst, err := h.events.CreateInstance(h.ctx, admin, input.CreateInstanceInput{
		EventID:         event.ID,
		StartDate:       o.start,
		StudentCapacity: o.students,
		ParentCapacity:  o.parents,
		WaitlistEnabled: o.waitlist,
	})
	require.NoError(h.t, err)
	h.notes.reset()
	return inst
}

func (h *harness) signup(actor entities.Actor, instanceID uint) *entities.Signup {
	h.t.Helper()
	s, err := h.signups.CreateSignup(h.ctx, actor, instanceID)
	require.NoError(h.t, err)
	return s
}

func (h *harness) get(id uint) *entities.Signup {
	h.t.Helper()
	s, err := h.store.Repos().Signups.FindByID(h.ctx, id)
	require.NoError(h.t, err)
	return s
}

func (h *harness) statusCounts(instanceID uint, role entities.Role) map[entities.SignupStatus]int {
	h.t.Helper()
	all, err := h.store.Repos().Signups.FindByInstance(h.ctx, instanceID)
	require.NoError(h.t, err)
	out := map[entities.SignupStatus]int{}
	for _, s := range all {
		if s.Role == role {
			out[s.Status]++
		}
	}
	return out
}

package application

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signupd/internal/domain"
	"signupd/internal/domain/entities"
	"signupd/internal/ports/input"
)

func TestCreateSignupConcurrentNeverOverbooks(t *testing.T) {
	h := newHarness(t)
	inst := h.instance(instanceOpts{students: 3, waitlist: true})

	const n = 12
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.signups.CreateSignup(h.ctx, student(fmt.Sprintf("s-%d", i)), inst.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	counts := h.statusCounts(inst.ID, entities.RoleStudent)
	assert.Equal(t, 3, counts[entities.StatusConfirmed])
	assert.Equal(t, n-3, counts[entities.StatusWaitlist])
	assert.Equal(t, n, counts[entities.StatusConfirmed]+counts[entities.StatusWaitlist])
	assert.Equal(t, n, h.notes.count(entities.MsgSignupCreated, entities.AudienceInstance))
}

func TestCreateSignupRolePoolsAreIndependent(t *testing.T) {
	h := newHarness(t)
	inst := h.instance(instanceOpts{students: 1, parents: 1, waitlist: true})

	assert.Equal(t, entities.StatusConfirmed, h.signup(student("s1"), inst.ID).Status)
	assert.Equal(t, entities.StatusConfirmed, h.signup(parent("p1"), inst.ID).Status)
	assert.Equal(t, entities.StatusWaitlist, h.signup(student("s2"), inst.ID).Status)
	assert.Equal(t, entities.StatusWaitlist, h.signup(parent("p2"), inst.ID).Status)
}

func TestCreateSignupRejections(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(h *harness) (entities.Actor, uint)
		wantErr *domain.Error
		kind    domain.Kind
	}{
		{
			name: "unknown instance",
			setup: func(h *harness) (entities.Actor, uint) {
				return student("s1"), 404
			},
			wantErr: domain.ErrInstanceNotFound,
			kind:    domain.KindNotFound,
		},
		{
			name: "unpublished event",
			setup: func(h *harness) (entities.Actor, uint) {
				return student("s1"), h.instance(instanceOpts{students: 1, unpublished: true}).ID
			},
			wantErr: domain.ErrEventNotPublished,
			kind:    domain.KindForbidden,
		},
		{
			name: "disabled instance",
			setup: func(h *harness) (entities.Actor, uint) {
				inst := h.instance(instanceOpts{students: 1})
				_, err := h.events.SetInstanceEnabled(h.ctx, admin, inst.ID, false)
				require.NoError(h.t, err)
				return student("s1"), inst.ID
			},
			wantErr: domain.ErrInstanceDisabled,
			kind:    domain.KindForbidden,
		},
		{
			name: "cancelled instance",
			setup: func(h *harness) (entities.Actor, uint) {
				inst := h.instance(instanceOpts{students: 1})
				_, err := h.events.CancelInstance(h.ctx, admin, inst.ID)
				require.NoError(h.t, err)
				return student("s1"), inst.ID
			},
			wantErr: domain.ErrInstanceCancelled,
			kind:    domain.KindForbidden,
		},
		{
			name: "active signup exists",
			setup: func(h *harness) (entities.Actor, uint) {
				inst := h.instance(instanceOpts{students: 1, waitlist: true})
				h.signup(student("s1"), inst.ID)
				return student("s1"), inst.ID
			},
			wantErr: domain.ErrSignupExists,
			kind:    domain.KindConflict,
		},
		{
			name: "full with waitlist disabled",
			setup: func(h *harness) (entities.Actor, uint) {
				return student("s1"), h.instance(instanceOpts{students: 0}).ID
			},
			wantErr: domain.ErrCapacityFull,
			kind:    domain.KindConflict,
		},
		{
			name: "resignup within debounce",
			setup: func(h *harness) (entities.Actor, uint) {
				inst := h.instance(instanceOpts{students: 1})
				s := h.signup(student("s1"), inst.ID)
				_, err := h.signups.CancelSignup(h.ctx, student("s1"), s.ID)
				require.NoError(h.t, err)
				h.clock.Advance(2 * time.Second)
				return student("s1"), inst.ID
			},
			wantErr: domain.ErrResignupTooSoon,
			kind:    domain.KindRateLimited,
		},
		{
			name: "invalid actor",
			setup: func(h *harness) (entities.Actor, uint) {
				return entities.Actor{ParticipantID: "", Role: "GUEST"}, h.instance(instanceOpts{students: 1}).ID
			},
			wantErr: domain.ErrInvalidInput,
			kind:    domain.KindValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			actor, instanceID := tt.setup(h)
			before, _ := h.store.Repos().Signups.FindByInstance(h.ctx, instanceID)
			h.notes.reset()

			_, err := h.signups.CreateSignup(h.ctx, actor, instanceID)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.kind, domain.KindOf(err))

			after, _ := h.store.Repos().Signups.FindByInstance(h.ctx, instanceID)
			assert.Equal(t, before, after, "a rejected signup writes nothing")
			assert.Empty(t, h.notes.msgs, "a rejected signup sends nothing")
		})
	}
}

func TestCreateSignupAdminBypassesPublication(t *testing.T) {
	h := newHarness(t)
	inst := h.instance(instanceOpts{students: 1, unpublished: true})
	s := h.signup(admin, inst.ID)
	assert.Equal(t, entities.StatusConfirmed, s.Status)
}

func TestResignupAfterDebounceRevivesRow(t *testing.T) {
	h := newHarness(t)
	inst := h.instance(instanceOpts{students: 1, waitlist: true})
	first := h.signup(student("s1"), inst.ID)
	_, err := h.signups.CancelSignup(h.ctx, student("s1"), first.ID)
	require.NoError(t, err)

	h.clock.Advance(6 * time.Second)
	again := h.signup(student("s1"), inst.ID)
	assert.Equal(t, first.ID, again.ID, "the cancelled row is revived in place")
	assert.Equal(t, entities.StatusConfirmed, again.Status)
	assert.Equal(t, h.clock.Now(), again.SignupDate)
	assert.True(t, h.get(first.ID).CancelledAt.IsZero())
}

func TestCreateSignupMessages(t *testing.T) {
	h := newHarness(t)
	inst := h.instance(instanceOpts{students: 1, waitlist: true})

	h.signup(student("s1"), inst.ID)
	h.signup(student("s2"), inst.ID)

	assert.Equal(t, []entities.MessageType{entities.MsgSignupConfirmed}, h.notes.to("s1"))
	assert.Equal(t, []entities.MessageType{entities.MsgSignupWaitlisted}, h.notes.to("s2"))
	assert.Equal(t, 2, h.notes.count(entities.MsgSignupCreated, entities.AudienceInstance))
	for _, m := range h.notes.msgs {
		assert.NotEmpty(t, m.ID)
		assert.Equal(t, t0, m.CreatedAt)
	}
}

// The X/Y walk-through: cancel frees the slot, the waitlisted signup gets an
// offer and accepting it confirms with a fresh signup date.
func TestCancelPromoteAcceptScenario(t *testing.T) {
	h := newHarness(t)
	inst := h.instance(instanceOpts{students: 1, waitlist: true})

	x := h.signup(student("x"), inst.ID)
	y := h.signup(student("y"), inst.ID)
	require.Equal(t, entities.StatusConfirmed, x.Status)
	require.Equal(t, entities.StatusWaitlist, y.Status)

	h.clock.Advance(time.Minute)
	_, err := h.signups.CancelSignup(h.ctx, student("x"), x.ID)
	require.NoError(t, err)

	pending := h.get(y.ID)
	assert.Equal(t, entities.StatusWaitlistPending, pending.Status)
	assert.Equal(t, h.clock.Now(), pending.WaitlistNotifiedAt)
	assert.Contains(t, h.notes.to("y"), entities.MsgOfferIssued)
	assert.NotContains(t, h.notes.to("x"), entities.MsgSignupRemoved, "own cancellation is not a removal")

	h.clock.Advance(3 * time.Hour)
	accepted, err := h.signups.AcceptOffer(h.ctx, student("y"), inst.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusConfirmed, accepted.Status)
	assert.Equal(t, h.clock.Now(), accepted.SignupDate)
	assert.True(t, accepted.WaitlistNotifiedAt.IsZero())

	counts := h.statusCounts(inst.ID, entities.RoleStudent)
	assert.Equal(t, 1, counts[entities.StatusConfirmed])
	assert.Zero(t, counts[entities.StatusWaitlist])
	assert.Zero(t, counts[entities.StatusWaitlistPending])
	assert.Equal(t, 1, counts[entities.StatusCancelled])
}

func TestCancelSignupPermissions(t *testing.T) {
	h := newHarness(t)
	inst := h.instance(instanceOpts{students: 2})
	s := h.signup(student("s1"), inst.ID)

	_, err := h.signups.CancelSignup(h.ctx, student("intruder"), s.ID)
	assert.ErrorIs(t, err, domain.ErrNotOwner)

	_, err = h.signups.CancelSignup(h.ctx, admin, s.ID)
	require.NoError(t, err)
	assert.Contains(t, h.notes.to("s1"), entities.MsgSignupRemoved, "admin cancel tells the participant")

	_, err = h.signups.CancelSignup(h.ctx, admin, s.ID)
	assert.ErrorIs(t, err, domain.ErrSignupNotActive)

	_, err = h.signups.CancelSignup(h.ctx, admin, 999)
	assert.ErrorIs(t, err, domain.ErrSignupNotFound)
}

func TestCancelWaitlistedDoesNotPromote(t *testing.T) {
	h := newHarness(t)
	inst := h.instance(instanceOpts{students: 1, waitlist: true})
	h.signup(student("a"), inst.ID)
	b := h.signup(student("b"), inst.ID)
	c := h.signup(student("c"), inst.ID)

	_, err := h.signups.CancelSignup(h.ctx, student("b"), b.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusWaitlist, h.get(c.ID).Status)
}

func TestDeleteSignupPromotes(t *testing.T) {
	h := newHarness(t)
	inst := h.instance(instanceOpts{students: 1, waitlist: true})
	a := h.signup(student("a"), inst.ID)
	b := h.signup(student("b"), inst.ID)

	removed, err := h.signups.DeleteSignup(h.ctx, admin, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, removed.ID)

	_, err = h.store.Repos().Signups.FindByID(h.ctx, a.ID)
	assert.ErrorIs(t, err, domain.ErrSignupNotFound)
	assert.Equal(t, entities.StatusWaitlistPending, h.get(b.ID).Status)
	assert.Contains(t, h.notes.to("a"), entities.MsgSignupRemoved)
}

func TestDeleteSignupIsAdminOnly(t *testing.T) {
	h := newHarness(t)
	inst := h.instance(instanceOpts{students: 1, waitlist: true})
	a := h.signup(student("a"), inst.ID)
	b := h.signup(student("b"), inst.ID)
	_, err := h.signups.CancelSignup(h.ctx, student("a"), a.ID)
	require.NoError(t, err)
	require.Equal(t, entities.StatusWaitlistPending, h.get(b.ID).Status)
	h.notes.reset()

	tests := []struct {
		name  string
		actor entities.Actor
		id    uint
	}{
		{"owner of a cancelled signup", student("a"), a.ID},
		{"owner of a pending offer", student("b"), b.ID},
		{"another participant", student("c"), b.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.signups.DeleteSignup(h.ctx, tt.actor, tt.id)
			require.ErrorIs(t, err, domain.ErrAdminOnly)
			assert.Equal(t, domain.KindForbidden, domain.KindOf(err))
		})
	}

	assert.Equal(t, entities.StatusCancelled, h.get(a.ID).Status, "the cancelled row survives")
	assert.Equal(t, entities.StatusWaitlistPending, h.get(b.ID).Status, "the offer is only dropped by declining")
	assert.Empty(t, h.notes.msgs)

	// The surviving cancelledAt still debounces a quick return.
	h.clock.Advance(time.Second)
	_, err = h.signups.CreateSignup(h.ctx, student("a"), inst.ID)
	assert.ErrorIs(t, err, domain.ErrResignupTooSoon)
	assert.Equal(t, domain.KindRateLimited, domain.KindOf(err))
}

func TestBulkRemoveIsBestEffort(t *testing.T) {
	h := newHarness(t)
	inst := h.instance(instanceOpts{students: 2, waitlist: true})
	a := h.signup(student("a"), inst.ID)
	b := h.signup(student("b"), inst.ID)
	w1 := h.signup(student("w1"), inst.ID)
	w2 := h.signup(student("w2"), inst.ID)

	_, err := h.signups.BulkRemove(h.ctx, student("a"), []uint{a.ID})
	assert.ErrorIs(t, err, domain.ErrAdminOnly)

	results, err := h.signups.BulkRemove(h.ctx, admin, []uint{a.ID, 999, b.ID})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.Equal(t, a.ID, results[0].Signup.ID)
	assert.ErrorIs(t, results[1].Err, domain.ErrSignupNotFound)
	assert.Nil(t, results[1].Signup)
	assert.NoError(t, results[2].Err, "a failed item does not stop the batch")

	assert.Equal(t, entities.StatusWaitlistPending, h.get(w1.ID).Status)
	assert.Equal(t, entities.StatusWaitlistPending, h.get(w2.ID).Status)
}

func TestDeclineOfferCascadesAndIsNotRepeatable(t *testing.T) {
	h := newHarness(t)
	inst := h.instance(instanceOpts{students: 1, waitlist: true})
	a := h.signup(student("a"), inst.ID)
	h.clock.Advance(time.Second)
	b := h.signup(student("b"), inst.ID)
	h.clock.Advance(time.Second)
	c := h.signup(student("c"), inst.ID)

	_, err := h.signups.CancelSignup(h.ctx, student("a"), a.ID)
	require.NoError(t, err)
	require.Equal(t, entities.StatusWaitlistPending, h.get(b.ID).Status)

	require.NoError(t, h.signups.DeclineOffer(h.ctx, student("b"), inst.ID))
	_, err = h.store.Repos().Signups.FindByID(h.ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrSignupNotFound, "a declined offer is deleted")
	assert.Equal(t, entities.StatusWaitlistPending, h.get(c.ID).Status)
	assert.Contains(t, h.notes.to("b"), entities.MsgOfferDeclined)
	assert.Contains(t, h.notes.to("c"), entities.MsgOfferIssued)

	err = h.signups.DeclineOffer(h.ctx, student("b"), inst.ID)
	assert.ErrorIs(t, err, domain.ErrNoPendingOffer)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestAcceptOfferRequiresPendingOffer(t *testing.T) {
	h := newHarness(t)
	inst := h.instance(instanceOpts{students: 1, waitlist: true})
	h.signup(student("a"), inst.ID)
	h.signup(student("b"), inst.ID)

	_, err := h.signups.AcceptOffer(h.ctx, student("a"), inst.ID)
	assert.ErrorIs(t, err, domain.ErrNoPendingOffer, "confirmed is not pending")
	_, err = h.signups.AcceptOffer(h.ctx, student("b"), inst.ID)
	assert.ErrorIs(t, err, domain.ErrNoPendingOffer, "waitlisted is not pending")
	_, err = h.signups.AcceptOffer(h.ctx, student("nobody"), inst.ID)
	assert.ErrorIs(t, err, domain.ErrNoPendingOffer)
}

func TestAcceptOfferAfterWindowExpires(t *testing.T) {
	h := newHarness(t)
	inst := h.instance(instanceOpts{students: 1, waitlist: true})
	a := h.signup(student("a"), inst.ID)
	b := h.signup(student("b"), inst.ID)
	_, err := h.signups.CancelSignup(h.ctx, student("a"), a.ID)
	require.NoError(t, err)

	h.clock.Advance(12*time.Hour + time.Second)
	_, err = h.signups.AcceptOffer(h.ctx, student("b"), inst.ID)
	assert.ErrorIs(t, err, domain.ErrOfferExpired)
	assert.Equal(t, domain.KindExpired, domain.KindOf(err))
	assert.Equal(t, entities.StatusWaitlistPending, h.get(b.ID).Status, "the sweeper owns expiry")
}

func TestAcceptOfferWhenCapacityChanged(t *testing.T) {
	h := newHarness(t)
	inst := h.instance(instanceOpts{students: 2, waitlist: true})
	a := h.signup(student("a"), inst.ID)
	h.signup(student("b"), inst.ID)
	h.signup(student("c"), inst.ID)
	_, err := h.signups.CancelSignup(h.ctx, student("a"), a.ID)
	require.NoError(t, err)

	// Shrink the pool behind the service's back, as a lost race would.
	shrunk, err := h.store.Repos().Instances.FindByID(h.ctx, inst.ID)
	require.NoError(t, err)
	shrunk.StudentCapacity = 1
	require.NoError(t, h.store.Repos().Instances.Update(h.ctx, shrunk))

	_, err = h.signups.AcceptOffer(h.ctx, student("c"), inst.ID)
	assert.ErrorIs(t, err, domain.ErrCapacityChanged)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
}

func TestQueries(t *testing.T) {
	h := newHarness(t)
	inst := h.instance(instanceOpts{students: 1, parents: 1, waitlist: true})
	a := h.signup(student("a"), inst.ID)
	h.clock.Advance(time.Second)
	h.signup(student("b"), inst.ID)
	h.clock.Advance(time.Second)
	h.signup(parent("p"), inst.ID)
	h.clock.Advance(time.Second)
	h.signup(student("c"), inst.ID)

	got, err := h.signups.GetSignup(h.ctx, student("a"), a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	_, err = h.signups.GetSignup(h.ctx, student("b"), a.ID)
	assert.ErrorIs(t, err, domain.ErrNotOwner)

	_, err = h.signups.ListInstanceSignups(h.ctx, student("a"), inst.ID)
	assert.ErrorIs(t, err, domain.ErrAdminOnly)
	all, err := h.signups.ListInstanceSignups(h.ctx, admin, inst.ID)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "a", all[0].ParticipantID)

	positions := map[string]int{"a": 0, "b": 1, "c": 2, "p": 0}
	for id, want := range positions {
		actor := student(id)
		if id == "p" {
			actor = parent(id)
		}
		pos, err := h.signups.WaitlistPosition(h.ctx, actor, inst.ID)
		require.NoError(t, err)
		assert.Equal(t, want, pos, id)
	}
	_, err = h.signups.WaitlistPosition(h.ctx, student("nobody"), inst.ID)
	assert.ErrorIs(t, err, domain.ErrSignupNotFound)
}

func TestAvailability(t *testing.T) {
	h := newHarness(t)
	inst := h.instance(instanceOpts{students: 2, parents: 1, waitlist: true})
	a := h.signup(student("a"), inst.ID)
	h.signup(student("b"), inst.ID)
	h.signup(student("c"), inst.ID)
	h.signup(student("d"), inst.ID)
	_, err := h.signups.CancelSignup(h.ctx, student("a"), a.ID)
	require.NoError(t, err)

	pools, err := h.events.Availability(h.ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, []input.PoolAvailability{
		{Role: entities.RoleStudent, Capacity: 2, Confirmed: 1, Pending: 1, Waitlist: 1, Remaining: 0},
		{Role: entities.RoleParent, Capacity: 1, Remaining: 1},
	}, pools)
}

package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"signupd/internal/domain"
	"signupd/internal/domain/entities"
	"signupd/internal/ports/input"
	"signupd/internal/ports/output"
)

var _ input.SignupUseCase = (*SignupService)(nil)

// SignupService is the signup transaction manager: create, cancel, remove,
// and the accept/decline side of waitlist offers.
type SignupService struct {
	Deps
	promoter *Promoter
}

func NewSignupService(deps Deps, promoter *Promoter) *SignupService {
	deps = deps.withDefaults()
	if promoter == nil {
		promoter = NewPromoter(deps.Logger)
	}
	return &SignupService{Deps: deps, promoter: promoter}
}

func validateActor(actor entities.Actor) error {
	if err := validate.Struct(actor); err != nil {
		return domain.ErrInvalidInput.Wrap(err)
	}
	return nil
}

// CreateSignup places actor on the instance as CONFIRMED or WAITLIST.
func (s *SignupService) CreateSignup(ctx context.Context, actor entities.Actor, instanceID uint) (*entities.Signup, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	var created entities.Signup
	err := s.runTx(ctx, "create_signup", func(ctx context.Context, r output.Repos, out *outbox) error {
		now := out.now
		instance, err := r.Instances.FindByIDForUpdate(ctx, instanceID)
		if err != nil {
			return err
		}
		event, err := r.Events.FindByID(ctx, instance.EventID)
		if err != nil {
			return err
		}
		if !event.IsPublished() && !actor.IsAdmin {
			return domain.ErrEventNotPublished
		}
		if instance.Status == entities.InstanceCancelled {
			return domain.ErrInstanceCancelled
		}
		if !instance.Enabled {
			return domain.ErrInstanceDisabled
		}
		if !instance.IsOpen() {
			return domain.ErrInstanceClosed
		}

		existing, err := r.Signups.FindByInstanceAndParticipant(ctx, instanceID, actor.ParticipantID)
		if err != nil && !errors.Is(err, domain.ErrSignupNotFound) {
			return err
		}
		if existing != nil {
			if existing.IsActive() {
				return domain.ErrSignupExists
			}
			if now.Sub(existing.CancelledAt) < s.Policy.ResignupDebounce {
				return domain.ErrResignupTooSoon
			}
		}

		role := actor.Role
		capacity := instance.Capacity(role)
		reserved, err := r.Signups.CountByInstanceRoleStatus(ctx, instanceID, role, entities.ReservedStatuses...)
		if err != nil {
			return fmt.Errorf("count reserved: %w", err)
		}
		status, ok := domain.Decide(reserved, capacity, instance.WaitlistEnabled).Status()
		if !ok {
			return domain.ErrCapacityFull
		}

		signup := entities.Signup{
			InstanceID:    instanceID,
			ParticipantID: actor.ParticipantID,
			Role:          role,
			Status:        status,
			SignupDate:    now,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if existing != nil {
			signup.ID = existing.ID
			signup.CreatedAt = existing.CreatedAt
			if err := r.Signups.Update(ctx, &signup); err != nil {
				return fmt.Errorf("revive signup: %w", err)
			}
		} else if err := r.Signups.Create(ctx, &signup); err != nil {
			return fmt.Errorf("create signup: %w", err)
		}

		// Backstop against write skew: a concurrent writer may have confirmed
		// past the count read above.
		if signup.Status == entities.StatusConfirmed {
			confirmed, err := r.Signups.CountByInstanceRoleStatus(ctx, instanceID, role, entities.StatusConfirmed)
			if err != nil {
				return fmt.Errorf("recount confirmed: %w", err)
			}
			if confirmed > capacity {
				if !instance.WaitlistEnabled {
					// rollback discards the row written above
					return domain.ErrCapacityFull
				}
				signup.Status = entities.StatusWaitlist
				if err := r.Signups.Update(ctx, &signup); err != nil {
					return fmt.Errorf("demote signup: %w", err)
				}
				signupsBackstopDemoted.Inc()
			}
		}

		created = signup
		out.instance(entities.MsgSignupCreated, instanceID, &signup)
		typ := entities.MsgSignupConfirmed
		if signup.Status == entities.StatusWaitlist {
			typ = entities.MsgSignupWaitlisted
		}
		out.participant(typ, signup.ParticipantID, actor.Locale, instance, signup.ID, map[string]any{"role": string(role)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	signupsCreated.WithLabelValues(string(created.Status)).Inc()
	s.Logger.WithFields(logrus.Fields{
		"instance_id":    instanceID,
		"signup_id":      created.ID,
		"participant_id": created.ParticipantID,
		"status":         created.Status,
	}).Info("signup created")
	return &created, nil
}

// CancelSignup soft-cancels a signup. A freed reservation is offered to the
// next waitlisted signup of the same role.
func (s *SignupService) CancelSignup(ctx context.Context, actor entities.Actor, signupID uint) (*entities.Signup, error) {
	var cancelled entities.Signup
	err := s.runTx(ctx, "cancel_signup", func(ctx context.Context, r output.Repos, out *outbox) error {
		signup, instance, err := s.loadOwnedSignup(ctx, r, actor, signupID)
		if err != nil {
			return err
		}
		if !signup.IsActive() {
			return domain.ErrSignupNotActive
		}
		freed := signup.HoldsReservation()
		signup.Status = entities.StatusCancelled
		signup.CancelledAt = out.now
		signup.WaitlistNotifiedAt = time.Time{}
		signup.UpdatedAt = out.now
		if err := r.Signups.Update(ctx, signup); err != nil {
			return fmt.Errorf("cancel signup: %w", err)
		}
		cancelled = *signup
		return s.afterRemoval(ctx, r, out, actor, instance, signup, freed)
	})
	if err != nil {
		return nil, err
	}
	return &cancelled, nil
}

// DeleteSignup removes a signup row outright, with the same promotion rules as
// CancelSignup. It is an administrator removal: participants cancel instead,
// which keeps the cancelledAt the resignup debounce is measured from.
func (s *SignupService) DeleteSignup(ctx context.Context, actor entities.Actor, signupID uint) (*entities.Signup, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var removed entities.Signup
	err := s.runTx(ctx, "delete_signup", func(ctx context.Context, r output.Repos, out *outbox) error {
		signup, instance, err := s.loadOwnedSignup(ctx, r, actor, signupID)
		if err != nil {
			return err
		}
		freed := signup.HoldsReservation()
		if err := r.Signups.Delete(ctx, signup.ID); err != nil {
			return fmt.Errorf("delete signup: %w", err)
		}
		removed = *signup
		return s.afterRemoval(ctx, r, out, actor, instance, signup, freed)
	})
	if err != nil {
		return nil, err
	}
	return &removed, nil
}

// BulkRemove deletes each signup in its own transaction. It is best-effort:
// a failure is reported in that item's result and does not stop the others.
func (s *SignupService) BulkRemove(ctx context.Context, actor entities.Actor, signupIDs []uint) ([]input.RemovalResult, error) {
	if !actor.IsAdmin {
		return nil, domain.ErrAdminOnly
	}
	results := make([]input.RemovalResult, 0, len(signupIDs))
	for _, id := range signupIDs {
		signup, err := s.DeleteSignup(ctx, actor, id)
		if err != nil {
			s.Logger.WithField("signup_id", id).WithError(err).Warn("bulk removal item failed")
		}
		results = append(results, input.RemovalResult{SignupID: id, Signup: signup, Err: err})
	}
	return results, nil
}

func (s *SignupService) loadOwnedSignup(ctx context.Context, r output.Repos, actor entities.Actor, signupID uint) (*entities.Signup, *entities.Instance, error) {
	signup, err := r.Signups.FindByID(ctx, signupID)
	if err != nil {
		return nil, nil, err
	}
	if !actor.Owns(signup) && !actor.IsAdmin {
		return nil, nil, domain.ErrNotOwner
	}
	instance, err := r.Instances.FindByIDForUpdate(ctx, signup.InstanceID)
	if err != nil {
		return nil, nil, err
	}
	// Re-read under the instance lock.
	signup, err = r.Signups.FindByID(ctx, signupID)
	if err != nil {
		return nil, nil, err
	}
	return signup, instance, nil
}

// afterRemoval promotes into a freed slot and queues the messages of a cancel
// or delete.
func (s *SignupService) afterRemoval(ctx context.Context, r output.Repos, out *outbox, actor entities.Actor, instance *entities.Instance, signup *entities.Signup, freed bool) error {
	out.instance(entities.MsgSignupUpdated, instance.ID, signup)
	if !actor.Owns(signup) {
		out.participant(entities.MsgSignupRemoved, signup.ParticipantID, "", instance, signup.ID, nil)
	}
	if !freed || !instance.IsOpen() || !instance.Enabled {
		return nil
	}
	promoted, err := s.promoter.PromoteWaitlisted(ctx, r.Signups, instance.ID, signup.Role, 1, out.now, TriggerCancellation)
	if err != nil {
		return err
	}
	out.offers(instance, promoted, s.Policy.OfferWindow)
	return nil
}

// AcceptOffer confirms actor's pending offer on the instance. The signup date
// is reset to the acceptance time.
func (s *SignupService) AcceptOffer(ctx context.Context, actor entities.Actor, instanceID uint) (*entities.Signup, error) {
	var accepted entities.Signup
	err := s.runTx(ctx, "accept_offer", func(ctx context.Context, r output.Repos, out *outbox) error {
		instance, signup, err := s.loadPendingOffer(ctx, r, actor, instanceID)
		if err != nil {
			return err
		}
		if signup.OfferExpired(out.now, s.Policy.OfferWindow) {
			return domain.ErrOfferExpired
		}
		confirmed, err := r.Signups.CountByInstanceRoleStatus(ctx, instanceID, signup.Role, entities.StatusConfirmed)
		if err != nil {
			return fmt.Errorf("count confirmed: %w", err)
		}
		if confirmed >= instance.Capacity(signup.Role) {
			return domain.ErrCapacityChanged
		}
		signup.Status = entities.StatusConfirmed
		signup.WaitlistNotifiedAt = time.Time{}
		signup.SignupDate = out.now
		signup.UpdatedAt = out.now
		if err := r.Signups.Update(ctx, signup); err != nil {
			return fmt.Errorf("accept offer: %w", err)
		}
		accepted = *signup
		out.instance(entities.MsgSignupUpdated, instanceID, signup)
		out.participant(entities.MsgOfferAccepted, signup.ParticipantID, actor.Locale, instance, signup.ID, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	offersResolved.WithLabelValues("accepted").Inc()
	return &accepted, nil
}

// DeclineOffer deletes actor's pending offer and offers the slot to the next
// waitlisted signup of the same role in the same transaction.
func (s *SignupService) DeclineOffer(ctx context.Context, actor entities.Actor, instanceID uint) error {
	err := s.runTx(ctx, "decline_offer", func(ctx context.Context, r output.Repos, out *outbox) error {
		instance, signup, err := s.loadPendingOffer(ctx, r, actor, instanceID)
		if err != nil {
			return err
		}
		if err := r.Signups.Delete(ctx, signup.ID); err != nil {
			return fmt.Errorf("decline offer: %w", err)
		}
		signup.Status = entities.StatusCancelled
		out.instance(entities.MsgSignupUpdated, instanceID, signup)
		out.participant(entities.MsgOfferDeclined, signup.ParticipantID, actor.Locale, instance, signup.ID, nil)
		if !instance.IsOpen() || !instance.Enabled {
			return nil
		}
		promoted, err := s.promoter.PromoteWaitlisted(ctx, r.Signups, instanceID, signup.Role, 1, out.now, TriggerDecline)
		if err != nil {
			return err
		}
		out.offers(instance, promoted, s.Policy.OfferWindow)
		return nil
	})
	if err != nil {
		return err
	}
	offersResolved.WithLabelValues("declined").Inc()
	return nil
}

func (s *SignupService) loadPendingOffer(ctx context.Context, r output.Repos, actor entities.Actor, instanceID uint) (*entities.Instance, *entities.Signup, error) {
	if err := validateActor(actor); err != nil {
		return nil, nil, err
	}
	instance, err := r.Instances.FindByIDForUpdate(ctx, instanceID)
	if err != nil {
		return nil, nil, err
	}
	signup, err := r.Signups.FindByInstanceAndParticipant(ctx, instanceID, actor.ParticipantID)
	if errors.Is(err, domain.ErrSignupNotFound) {
		return nil, nil, domain.ErrNoPendingOffer
	}
	if err != nil {
		return nil, nil, err
	}
	if signup.Status != entities.StatusWaitlistPending {
		return nil, nil, domain.ErrNoPendingOffer
	}
	return instance, signup, nil
}

// GetSignup returns a signup visible to actor.
func (s *SignupService) GetSignup(ctx context.Context, actor entities.Actor, signupID uint) (*entities.Signup, error) {
	signup, err := s.Store.Repos().Signups.FindByID(ctx, signupID)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(signup) && !actor.IsAdmin {
		return nil, domain.ErrNotOwner
	}
	return signup, nil
}

// ListInstanceSignups returns every signup of an instance, oldest first.
func (s *SignupService) ListInstanceSignups(ctx context.Context, actor entities.Actor, instanceID uint) ([]entities.Signup, error) {
	if !actor.IsAdmin {
		return nil, domain.ErrAdminOnly
	}
	repos := s.Store.Repos()
	if _, err := repos.Instances.FindByID(ctx, instanceID); err != nil {
		return nil, err
	}
	return repos.Signups.FindByInstance(ctx, instanceID)
}

// WaitlistPosition returns actor's 1-based place in its role waitlist, or 0
// when actor is not waitlisted on the instance.
func (s *SignupService) WaitlistPosition(ctx context.Context, actor entities.Actor, instanceID uint) (int, error) {
	repos := s.Store.Repos()
	signup, err := repos.Signups.FindByInstanceAndParticipant(ctx, instanceID, actor.ParticipantID)
	if err != nil {
		return 0, err
	}
	if signup.Status != entities.StatusWaitlist {
		return 0, nil
	}
	waitlist, err := repos.Signups.FindByInstanceAndStatus(ctx, instanceID, entities.StatusWaitlist)
	if err != nil {
		return 0, fmt.Errorf("find waitlist: %w", err)
	}
	sort.SliceStable(waitlist, func(i, j int) bool { return waitlistBefore(&waitlist[i], &waitlist[j]) })
	position := 0
	for i := range waitlist {
		if waitlist[i].Role != signup.Role {
			continue
		}
		position++
		if waitlist[i].ID == signup.ID {
			return position, nil
		}
	}
	return 0, nil
}

// waitlistBefore orders a waitlist by signup date, then by id.
func waitlistBefore(a, b *entities.Signup) bool {
	if !a.SignupDate.Equal(b.SignupDate) {
		return a.SignupDate.Before(b.SignupDate)
	}
	return a.ID < b.ID
}

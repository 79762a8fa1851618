package application

import (
	"context"
	"fmt"
	"time"

	"signupd/internal/domain"
	"signupd/internal/domain/entities"
	"signupd/internal/ports/output"
)

// demotePendingOffers returns every WAITLIST_PENDING signup of an instance to
// WAITLIST. Signup dates are kept, so demoted signups keep their place.
func demotePendingOffers(ctx context.Context, r output.Repos, instanceID uint, now time.Time) ([]entities.Signup, error) {
	pending, err := r.Signups.FindByInstanceAndStatus(ctx, instanceID, entities.StatusWaitlistPending)
	if err != nil {
		return nil, fmt.Errorf("find pending offers: %w", err)
	}
	for i := range pending {
		pending[i].Status = entities.StatusWaitlist
		pending[i].WaitlistNotifiedAt = time.Time{}
		pending[i].UpdatedAt = now
		if err := r.Signups.Update(ctx, &pending[i]); err != nil {
			return nil, fmt.Errorf("demote signup %d: %w", pending[i].ID, err)
		}
	}
	return pending, nil
}

// closeInstance moves an instance to COMPLETED or CANCELLED. Pending offers go
// back to the waitlist and every confirmed participant except actor is told.
func closeInstance(ctx context.Context, r output.Repos, out *outbox, actor entities.Actor, instance *entities.Instance, status entities.InstanceStatus) error {
	if !instance.IsOpen() {
		return domain.ErrInstanceClosed
	}
	now := out.now
	instance.Status = status
	instance.Enabled = false
	if status == entities.InstanceCancelled {
		instance.CancelledAt = now
	}
	instance.UpdatedAt = now
	if err := r.Instances.Update(ctx, instance); err != nil {
		return fmt.Errorf("update instance: %w", err)
	}
	demoted, err := demotePendingOffers(ctx, r, instance.ID, now)
	if err != nil {
		return err
	}
	for i := range demoted {
		out.instance(entities.MsgSignupUpdated, instance.ID, &demoted[i])
	}

	typ := entities.MsgInstanceCompleted
	if status == entities.InstanceCancelled {
		typ = entities.MsgInstanceCancelled
	}
	confirmed, err := r.Signups.FindByInstanceAndStatus(ctx, instance.ID, entities.StatusConfirmed)
	if err != nil {
		return fmt.Errorf("find confirmed: %w", err)
	}
	for _, s := range confirmed {
		if s.ParticipantID == actor.ParticipantID {
			continue
		}
		out.participant(typ, s.ParticipantID, "", instance, s.ID, nil)
	}
	out.instance(typ, instance.ID, nil)
	return nil
}

// fillFreeSlots offers every free reservation of each role pool to the
// waitlist.
func fillFreeSlots(ctx context.Context, r output.Repos, out *outbox, p *Promoter, instance *entities.Instance, window time.Duration, trigger string) error {
	for _, role := range entities.Roles {
		reserved, err := r.Signups.CountByInstanceRoleStatus(ctx, instance.ID, role, entities.ReservedStatuses...)
		if err != nil {
			return fmt.Errorf("count reserved: %w", err)
		}
		promoted, err := p.PromoteWaitlisted(ctx, r.Signups, instance.ID, role, domain.FreeSlots(reserved, instance.Capacity(role)), out.now, trigger)
		if err != nil {
			return err
		}
		out.offers(instance, promoted, window)
	}
	return nil
}

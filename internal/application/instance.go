package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"signupd/internal/domain"
	"signupd/internal/domain/entities"
	"signupd/internal/ports/input"
	"signupd/internal/ports/output"
)

var _ input.EventUseCase = (*EventService)(nil)

// EventService holds the administrative side: events, instances, capacity
// and instance lifecycle.
type EventService struct {
	Deps
	promoter *Promoter
}

func NewEventService(deps Deps, promoter *Promoter) *EventService {
	deps = deps.withDefaults()
	if promoter == nil {
		promoter = NewPromoter(deps.Logger)
	}
	return &EventService{Deps: deps, promoter: promoter}
}

func requireAdmin(actor entities.Actor) error {
	if !actor.IsAdmin {
		return domain.ErrAdminOnly
	}
	return nil
}

func (s *EventService) CreateEvent(ctx context.Context, actor entities.Actor, in input.CreateEventInput) (*entities.Event, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := validate.Struct(in); err != nil {
		return nil, domain.ErrInvalidInput.Wrap(err)
	}
	now := s.Clock()
	event := &entities.Event{
		CreatorID:   actor.ParticipantID,
		Title:       in.Title,
		Description: in.Description,
		Status:      entities.EventDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if !in.ScheduledPublishDate.IsZero() {
		if !in.ScheduledPublishDate.After(now) {
			return nil, domain.ErrInvalidInput.Wrap(fmt.Errorf("scheduled publish date must be in the future"))
		}
		event.Status = entities.EventScheduled
		event.ScheduledPublishDate = in.ScheduledPublishDate
	}
	if err := s.Store.Repos().Events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return event, nil
}

func (s *EventService) PublishEvent(ctx context.Context, actor entities.Actor, eventID uint) (*entities.Event, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var published entities.Event
	err := s.runTx(ctx, "publish_event", func(ctx context.Context, r output.Repos, out *outbox) error {
		event, err := r.Events.FindByID(ctx, eventID)
		if err != nil {
			return err
		}
		if event.IsPublished() {
			return domain.ErrEventAlreadyPublished
		}
		if err := publishEvent(ctx, r, out, event); err != nil {
			return err
		}
		published = *event
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &published, nil
}

func publishEvent(ctx context.Context, r output.Repos, out *outbox, event *entities.Event) error {
	event.Status = entities.EventPublished
	event.ScheduledPublishDate = time.Time{}
	event.UpdatedAt = out.now
	if err := r.Events.Update(ctx, event); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	out.add(entities.Message{
		Type:     entities.MsgEventPublished,
		Audience: entities.AudienceInstance,
		EventID:  event.ID,
		Data:     map[string]any{"title": event.Title},
	})
	return nil
}

func (s *EventService) CreateInstance(ctx context.Context, actor entities.Actor, in input.CreateInstanceInput) (*entities.Instance, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, domain.ErrInvalidInput.Wrap(err)
	}
	if !in.StartDate.IsZero() && !in.EndDate.IsZero() && in.EndDate.Before(in.StartDate) {
		return nil, domain.ErrInvalidInput.Wrap(fmt.Errorf("end date is before start date"))
	}
	repos := s.Store.Repos()
	if _, err := repos.Events.FindByID(ctx, in.EventID); err != nil {
		return nil, err
	}
	now := s.Clock()
	instance := &entities.Instance{
		EventID:         in.EventID,
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
		StudentCapacity: in.StudentCapacity,
		ParentCapacity:  in.ParentCapacity,
		Enabled:         true,
		WaitlistEnabled: in.WaitlistEnabled,
		Status:          entities.InstanceActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := repos.Instances.Create(ctx, instance); err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}
	return instance, nil
}

// UpdateCapacity changes both role capacities. A capacity below the reserved
// count of its pool is rejected before anything is written; an increase is
// offered to the waitlist.
func (s *EventService) UpdateCapacity(ctx context.Context, actor entities.Actor, instanceID uint, in input.CapacityInput) (*entities.Instance, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, domain.ErrInvalidInput.Wrap(err)
	}
	var updated entities.Instance
	err := s.runTx(ctx, "update_capacity", func(ctx context.Context, r output.Repos, out *outbox) error {
		instance, err := r.Instances.FindByIDForUpdate(ctx, instanceID)
		if err != nil {
			return err
		}
		next := map[entities.Role]int{
			entities.RoleStudent: in.StudentCapacity,
			entities.RoleParent:  in.ParentCapacity,
		}
		for _, role := range entities.Roles {
			reserved, err := r.Signups.CountByInstanceRoleStatus(ctx, instanceID, role, entities.ReservedStatuses...)
			if err != nil {
				return fmt.Errorf("count reserved: %w", err)
			}
			if next[role] < reserved {
				return domain.ErrCannotReduceCapacity.Wrap(fmt.Errorf("%s capacity %d below %d reserved", role, next[role], reserved))
			}
		}
		previous := *instance
		for _, role := range entities.Roles {
			instance.SetCapacity(role, next[role])
		}
		instance.UpdatedAt = out.now
		if err := r.Instances.Update(ctx, instance); err != nil {
			return fmt.Errorf("update instance: %w", err)
		}
		if instance.IsOpen() && instance.Enabled {
			for _, role := range entities.Roles {
				grown := instance.Capacity(role) - previous.Capacity(role)
				promoted, err := s.promoter.PromoteWaitlisted(ctx, r.Signups, instanceID, role, grown, out.now, TriggerCapacityIncrease)
				if err != nil {
					return err
				}
				out.offers(instance, promoted, s.Policy.OfferWindow)
			}
		}
		updated = *instance
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Logger.WithFields(logrus.Fields{
		"instance_id":      instanceID,
		"student_capacity": updated.StudentCapacity,
		"parent_capacity":  updated.ParentCapacity,
	}).Info("capacity updated")
	return &updated, nil
}

func (s *EventService) SetWaitlistEnabled(ctx context.Context, actor entities.Actor, instanceID uint, enabled bool) (*entities.Instance, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.mutateInstance(ctx, "set_waitlist", instanceID, func(ctx context.Context, r output.Repos, out *outbox, instance *entities.Instance) error {
		instance.WaitlistEnabled = enabled
		instance.UpdatedAt = out.now
		return r.Instances.Update(ctx, instance)
	})
}

// SetInstanceEnabled toggles signups on an instance. Disabling sends pending
// offers back to the waitlist; enabling offers every free slot again.
func (s *EventService) SetInstanceEnabled(ctx context.Context, actor entities.Actor, instanceID uint, enabled bool) (*entities.Instance, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.mutateInstance(ctx, "set_enabled", instanceID, func(ctx context.Context, r output.Repos, out *outbox, instance *entities.Instance) error {
		if instance.Enabled == enabled {
			return nil
		}
		if enabled && !instance.IsOpen() {
			return domain.ErrInstanceClosed
		}
		instance.Enabled = enabled
		instance.UpdatedAt = out.now
		if err := r.Instances.Update(ctx, instance); err != nil {
			return fmt.Errorf("update instance: %w", err)
		}
		if !enabled {
			demoted, err := demotePendingOffers(ctx, r, instance.ID, out.now)
			if err != nil {
				return err
			}
			for i := range demoted {
				out.instance(entities.MsgSignupUpdated, instance.ID, &demoted[i])
			}
			return nil
		}
		return fillFreeSlots(ctx, r, out, s.promoter, instance, s.Policy.OfferWindow, TriggerReenable)
	})
}

func (s *EventService) CancelInstance(ctx context.Context, actor entities.Actor, instanceID uint) (*entities.Instance, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.mutateInstance(ctx, "cancel_instance", instanceID, func(ctx context.Context, r output.Repos, out *outbox, instance *entities.Instance) error {
		return closeInstance(ctx, r, out, actor, instance, entities.InstanceCancelled)
	})
}

func (s *EventService) CompleteInstance(ctx context.Context, actor entities.Actor, instanceID uint) (*entities.Instance, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.mutateInstance(ctx, "complete_instance", instanceID, func(ctx context.Context, r output.Repos, out *outbox, instance *entities.Instance) error {
		return closeInstance(ctx, r, out, actor, instance, entities.InstanceCompleted)
	})
}

func (s *EventService) mutateInstance(ctx context.Context, op string, instanceID uint, fn func(ctx context.Context, r output.Repos, out *outbox, instance *entities.Instance) error) (*entities.Instance, error) {
	var result entities.Instance
	err := s.runTx(ctx, op, func(ctx context.Context, r output.Repos, out *outbox) error {
		instance, err := r.Instances.FindByIDForUpdate(ctx, instanceID)
		if err != nil {
			return err
		}
		if err := fn(ctx, r, out, instance); err != nil {
			return err
		}
		result = *instance
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Availability reports capacity and usage of every role pool.
func (s *EventService) Availability(ctx context.Context, instanceID uint) ([]input.PoolAvailability, error) {
	repos := s.Store.Repos()
	instance, err := repos.Instances.FindByID(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	signups, err := repos.Signups.FindByInstance(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("find signups: %w", err)
	}
	out := make([]input.PoolAvailability, 0, len(entities.Roles))
	for _, role := range entities.Roles {
		pool := input.PoolAvailability{Role: role, Capacity: instance.Capacity(role)}
		for _, su := range signups {
			if su.Role != role {
				continue
			}
			switch su.Status {
			case entities.StatusConfirmed:
				pool.Confirmed++
			case entities.StatusWaitlistPending:
				pool.Pending++
			case entities.StatusWaitlist:
				pool.Waitlist++
			}
		}
		pool.Remaining = domain.FreeSlots(pool.Confirmed+pool.Pending, pool.Capacity)
		out = append(out, pool)
	}
	return out, nil
}

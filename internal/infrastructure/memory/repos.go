package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"signupd/internal/domain"
	"signupd/internal/domain/entities"
	"signupd/internal/ports/output"
)

var (
	_ output.EventRepository        = (*eventRepo)(nil)
	_ output.InstanceRepository     = (*instanceRepo)(nil)
	_ output.SignupRepository       = (*signupRepo)(nil)
	_ output.NotificationRepository = (*notificationRepo)(nil)
)

type eventRepo struct{ base }

func (r *eventRepo) Create(_ context.Context, event *entities.Event) error {
	return r.with(func(st *state) error {
		st.nextEventID++
		event.ID = st.nextEventID
		st.events[event.ID] = *event
		return nil
	})
}

func (r *eventRepo) FindByID(_ context.Context, id uint) (*entities.Event, error) {
	var out entities.Event
	err := r.with(func(st *state) error {
		e, ok := st.events[id]
		if !ok {
			return domain.ErrEventNotFound
		}
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *eventRepo) FindDueForPublish(_ context.Context, now time.Time, limit int) ([]entities.Event, error) {
	var out []entities.Event
	_ = r.with(func(st *state) error {
		for _, e := range st.events {
			if e.PublishDue(now) {
				out = append(out, e)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b entities.Event) int {
		return cmp.Or(a.ScheduledPublishDate.Compare(b.ScheduledPublishDate), cmp.Compare(a.ID, b.ID))
	})
	return truncate(out, limit), nil
}

func (r *eventRepo) Update(_ context.Context, event *entities.Event) error {
	return r.with(func(st *state) error {
		if _, ok := st.events[event.ID]; !ok {
			return domain.ErrEventNotFound
		}
		st.events[event.ID] = *event
		return nil
	})
}

type instanceRepo struct{ base }

func (r *instanceRepo) Create(_ context.Context, instance *entities.Instance) error {
	return r.with(func(st *state) error {
		if _, ok := st.events[instance.EventID]; !ok {
			return domain.ErrEventNotFound
		}
		st.nextInstanceID++
		instance.ID = st.nextInstanceID
		st.instances[instance.ID] = *instance
		return nil
	})
}

func (r *instanceRepo) FindByID(_ context.Context, id uint) (*entities.Instance, error) {
	var out entities.Instance
	err := r.with(func(st *state) error {
		i, ok := st.instances[id]
		if !ok {
			return domain.ErrInstanceNotFound
		}
		out = i
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FindByIDForUpdate is FindByID: the transaction already holds the store lock.
func (r *instanceRepo) FindByIDForUpdate(ctx context.Context, id uint) (*entities.Instance, error) {
	return r.FindByID(ctx, id)
}

func (r *instanceRepo) FindStartedActive(_ context.Context, now time.Time, limit int) ([]entities.Instance, error) {
	var out []entities.Instance
	_ = r.with(func(st *state) error {
		for _, i := range st.instances {
			if i.IsOpen() && i.Enabled && i.Started(now) {
				out = append(out, i)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b entities.Instance) int {
		return cmp.Or(a.StartDate.Compare(b.StartDate), cmp.Compare(a.ID, b.ID))
	})
	return truncate(out, limit), nil
}

func (r *instanceRepo) Update(_ context.Context, instance *entities.Instance) error {
	return r.with(func(st *state) error {
		if _, ok := st.instances[instance.ID]; !ok {
			return domain.ErrInstanceNotFound
		}
		st.instances[instance.ID] = *instance
		return nil
	})
}

type signupRepo struct{ base }

func bySignupDate(a, b entities.Signup) int {
	return cmp.Or(a.SignupDate.Compare(b.SignupDate), cmp.Compare(a.ID, b.ID))
}

func (r *signupRepo) filter(keep func(entities.Signup) bool) []entities.Signup {
	var out []entities.Signup
	_ = r.with(func(st *state) error {
		for _, s := range st.signups {
			if keep(s) {
				out = append(out, s)
			}
		}
		return nil
	})
	slices.SortFunc(out, bySignupDate)
	return out
}

func (r *signupRepo) Create(_ context.Context, signup *entities.Signup) error {
	return r.with(func(st *state) error {
		if _, ok := st.instances[signup.InstanceID]; !ok {
			return domain.ErrInstanceNotFound
		}
		for _, s := range st.signups {
			if s.InstanceID == signup.InstanceID && s.ParticipantID == signup.ParticipantID {
				return domain.ErrSignupExists.Wrap(fmt.Errorf("participant %s on instance %d", signup.ParticipantID, signup.InstanceID))
			}
		}
		st.nextSignupID++
		signup.ID = st.nextSignupID
		st.signups[signup.ID] = *signup
		return nil
	})
}

func (r *signupRepo) FindByID(_ context.Context, id uint) (*entities.Signup, error) {
	var out entities.Signup
	err := r.with(func(st *state) error {
		s, ok := st.signups[id]
		if !ok {
			return domain.ErrSignupNotFound
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *signupRepo) FindByInstanceAndParticipant(_ context.Context, instanceID uint, participantID string) (*entities.Signup, error) {
	found := r.filter(func(s entities.Signup) bool {
		return s.InstanceID == instanceID && s.ParticipantID == participantID
	})
	if len(found) == 0 {
		return nil, domain.ErrSignupNotFound
	}
	return &found[0], nil
}

func (r *signupRepo) FindByInstance(_ context.Context, instanceID uint) ([]entities.Signup, error) {
	return r.filter(func(s entities.Signup) bool { return s.InstanceID == instanceID }), nil
}

func (r *signupRepo) FindByInstanceAndStatus(_ context.Context, instanceID uint, status entities.SignupStatus) ([]entities.Signup, error) {
	return r.filter(func(s entities.Signup) bool {
		return s.InstanceID == instanceID && s.Status == status
	}), nil
}

func (r *signupRepo) FindWaitlisted(_ context.Context, instanceID uint, role entities.Role, limit int) ([]entities.Signup, error) {
	if limit <= 0 {
		return nil, nil
	}
	out := r.filter(func(s entities.Signup) bool {
		return s.InstanceID == instanceID && s.Role == role && s.Status == entities.StatusWaitlist
	})
	return truncate(out, limit), nil
}

func (r *signupRepo) FindExpiredOffers(_ context.Context, cutoff time.Time, limit int) ([]entities.Signup, error) {
	out := r.filter(func(s entities.Signup) bool {
		return s.Status == entities.StatusWaitlistPending && s.WaitlistNotifiedAt.Before(cutoff)
	})
	slices.SortFunc(out, func(a, b entities.Signup) int {
		return cmp.Or(a.WaitlistNotifiedAt.Compare(b.WaitlistNotifiedAt), cmp.Compare(a.ID, b.ID))
	})
	return truncate(out, limit), nil
}

func (r *signupRepo) CountByInstanceRoleStatus(_ context.Context, instanceID uint, role entities.Role, statuses ...entities.SignupStatus) (int, error) {
	n := 0
	_ = r.with(func(st *state) error {
		for _, s := range st.signups {
			if s.InstanceID == instanceID && s.Role == role && slices.Contains(statuses, s.Status) {
				n++
			}
		}
		return nil
	})
	return n, nil
}

func (r *signupRepo) Update(_ context.Context, signup *entities.Signup) error {
	return r.with(func(st *state) error {
		if _, ok := st.signups[signup.ID]; !ok {
			return domain.ErrSignupNotFound
		}
		st.signups[signup.ID] = *signup
		return nil
	})
}

func (r *signupRepo) Delete(_ context.Context, id uint) error {
	return r.with(func(st *state) error {
		if _, ok := st.signups[id]; !ok {
			return domain.ErrSignupNotFound
		}
		delete(st.signups, id)
		return nil
	})
}

type notificationRepo struct{ base }

func (r *notificationRepo) Create(_ context.Context, n *entities.Notification) error {
	return r.with(func(st *state) error {
		for _, existing := range st.notifications {
			if existing.MessageID == n.MessageID && existing.ParticipantID == n.ParticipantID {
				n.ID = existing.ID
				n.CreatedAt = existing.CreatedAt
				return nil
			}
		}
		st.nextNotificationID++
		n.ID = st.nextNotificationID
		st.notifications[n.ID] = *n
		return nil
	})
}

func (r *notificationRepo) FindByParticipant(_ context.Context, participantID string, unreadOnly bool) ([]entities.Notification, error) {
	var out []entities.Notification
	_ = r.with(func(st *state) error {
		for _, n := range st.notifications {
			if n.ParticipantID != participantID || (unreadOnly && n.IsRead()) {
				continue
			}
			out = append(out, n)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b entities.Notification) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(b.ID, a.ID))
	})
	return out, nil
}

func (r *notificationRepo) MarkRead(_ context.Context, id uint, participantID string, at time.Time) error {
	return r.with(func(st *state) error {
		n, ok := st.notifications[id]
		if !ok || n.ParticipantID != participantID {
			return domain.ErrNotificationNotFound
		}
		if !n.IsRead() {
			n.ReadAt = at
			st.notifications[id] = n
		}
		return nil
	})
}

func truncate[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}

package output

import (
	"context"
	"time"

	"signupd/internal/domain/entities"
)

// Repositories are expected to return the matching domain NotFound error
// (wrapped) when a lookup by identity finds nothing.

type EventRepository interface {
	Create(ctx context.Context, event *entities.Event) error
	FindByID(ctx context.Context, id uint) (*entities.Event, error)
	FindDueForPublish(ctx context.Context, now time.Time, limit int) ([]entities.Event, error)
	Update(ctx context.Context, event *entities.Event) error
}

type InstanceRepository interface {
	Create(ctx context.Context, instance *entities.Instance) error
	FindByID(ctx context.Context, id uint) (*entities.Instance, error)
	// FindByIDForUpdate locks the instance row until the transaction ends.
	FindByIDForUpdate(ctx context.Context, id uint) (*entities.Instance, error)
	FindStartedActive(ctx context.Context, now time.Time, limit int) ([]entities.Instance, error)
	Update(ctx context.Context, instance *entities.Instance) error
}

type SignupRepository interface {
	Create(ctx context.Context, signup *entities.Signup) error
	FindByID(ctx context.Context, id uint) (*entities.Signup, error)
	FindByInstanceAndParticipant(ctx context.Context, instanceID uint, participantID string) (*entities.Signup, error)
	// FindByInstance returns every signup of an instance ordered by signup date.
	FindByInstance(ctx context.Context, instanceID uint) ([]entities.Signup, error)
	FindByInstanceAndStatus(ctx context.Context, instanceID uint, status entities.SignupStatus) ([]entities.Signup, error)
	// FindWaitlisted returns up to limit WAITLIST signups of a role pool,
	// earliest signup date first.
	FindWaitlisted(ctx context.Context, instanceID uint, role entities.Role, limit int) ([]entities.Signup, error)
	// FindExpiredOffers returns WAITLIST_PENDING signups notified before cutoff.
	FindExpiredOffers(ctx context.Context, cutoff time.Time, limit int) ([]entities.Signup, error)
	CountByInstanceRoleStatus(ctx context.Context, instanceID uint, role entities.Role, statuses ...entities.SignupStatus) (int, error)
	Update(ctx context.Context, signup *entities.Signup) error
	Delete(ctx context.Context, id uint) error
}

type NotificationRepository interface {
	Create(ctx context.Context, notification *entities.Notification) error
	FindByParticipant(ctx context.Context, participantID string, unreadOnly bool) ([]entities.Notification, error)
	MarkRead(ctx context.Context, id uint, participantID string, at time.Time) error
}

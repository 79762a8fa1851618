package input

import (
	"context"

	"signupd/internal/domain/entities"
)

// SignupUseCase is what the request layer calls on behalf of participants and
// administrators.
type SignupUseCase interface {
	CreateSignup(ctx context.Context, actor entities.Actor, instanceID uint) (*entities.Signup, error)
	CancelSignup(ctx context.Context, actor entities.Actor, signupID uint) (*entities.Signup, error)
	DeleteSignup(ctx context.Context, actor entities.Actor, signupID uint) (*entities.Signup, error)
	BulkRemove(ctx context.Context, actor entities.Actor, signupIDs []uint) ([]RemovalResult, error)
	AcceptOffer(ctx context.Context, actor entities.Actor, instanceID uint) (*entities.Signup, error)
	DeclineOffer(ctx context.Context, actor entities.Actor, instanceID uint) error
	GetSignup(ctx context.Context, actor entities.Actor, signupID uint) (*entities.Signup, error)
	ListInstanceSignups(ctx context.Context, actor entities.Actor, instanceID uint) ([]entities.Signup, error)
	WaitlistPosition(ctx context.Context, actor entities.Actor, instanceID uint) (int, error)
}

// RemovalResult is the outcome of one item of a bulk removal. Items are
// removed in independent transactions, so a batch can partially succeed.
type RemovalResult struct {
	SignupID uint
	Signup   *entities.Signup
	Err      error
}

type NotificationUseCase interface {
	ListNotifications(ctx context.Context, actor entities.Actor, unreadOnly bool) ([]entities.Notification, error)
	MarkRead(ctx context.Context, actor entities.Actor, notificationID uint) error
}

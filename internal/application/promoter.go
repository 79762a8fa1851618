package application

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"signupd/internal/domain/entities"
	"signupd/internal/ports/output"
)

// Promotion triggers, used as metric labels.
const (
	TriggerCancellation     = "cancellation"
	TriggerCapacityIncrease = "capacity_increase"
	TriggerDecline          = "decline"
	TriggerExpiry           = "expiry"
	TriggerReenable         = "reenable"
)

// Promoter turns the oldest waitlisted signups of a role pool into pending
// offers. It runs inside the caller's transaction.
type Promoter struct {
	log logrus.FieldLogger
}

func NewPromoter(log logrus.FieldLogger) *Promoter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Promoter{log: log}
}

// PromoteWaitlisted moves up to slots WAITLIST signups of (instanceID, role)
// to WAITLIST_PENDING, earliest signup date first, and returns them. The caller
// has already decided that slots reservations are free; capacity is not
// checked again.
func (p *Promoter) PromoteWaitlisted(ctx context.Context, signups output.SignupRepository, instanceID uint, role entities.Role, slots int, now time.Time, trigger string) ([]entities.Signup, error) {
	if slots <= 0 {
		return nil, nil
	}
	candidates, err := signups.FindWaitlisted(ctx, instanceID, role, slots)
	if err != nil {
		return nil, fmt.Errorf("find waitlisted: %w", err)
	}
	promoted := make([]entities.Signup, 0, len(candidates))
	for _, s := range candidates {
		s.Status = entities.StatusWaitlistPending
		s.WaitlistNotifiedAt = now
		s.UpdatedAt = now
		if err := signups.Update(ctx, &s); err != nil {
			return nil, fmt.Errorf("promote signup %d: %w", s.ID, err)
		}
		promoted = append(promoted, s)
	}
	if len(promoted) > 0 {
		promotions.WithLabelValues(trigger).Add(float64(len(promoted)))
		p.log.WithFields(logrus.Fields{
			"instance_id": instanceID,
			"role":        role,
			"promoted":    len(promoted),
			"trigger":     trigger,
		}).Info("waitlist promoted")
	}
	return promoted, nil
}

package application

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"signupd/internal/domain"
	"signupd/internal/domain/entities"
	"signupd/internal/ports/output"
)

const (
	DefaultSweepConcurrency = 4
	DefaultSweepBatchSize   = 100
)

// SweepReport counts what one sweep did.
type SweepReport struct {
	Completed int
	Expired   int
	Promoted  int
	Published int
	Failed    int
}

// Sweeper applies the time-driven transitions: it completes started
// instances, expires unanswered offers (cascading the promotion) and publishes
// events whose publication date has passed. Every row is handled in its own
// transaction.
type Sweeper struct {
	Deps
	promoter    *Promoter
	concurrency int
	batchSize   int
}

func NewSweeper(deps Deps, promoter *Promoter, concurrency, batchSize int) *Sweeper {
	deps = deps.withDefaults()
	if promoter == nil {
		promoter = NewPromoter(deps.Logger)
	}
	if concurrency <= 0 {
		concurrency = DefaultSweepConcurrency
	}
	if batchSize <= 0 {
		batchSize = DefaultSweepBatchSize
	}
	return &Sweeper{Deps: deps, promoter: promoter, concurrency: concurrency, batchSize: batchSize}
}

// Sweep runs one tick. Instances are completed before offers expire so a
// closed instance never produces expiry notices. Only listing failures are
// returned; per-row failures are logged and counted in the report.
func (s *Sweeper) Sweep(ctx context.Context) (SweepReport, error) {
	start := time.Now()
	defer func() { sweepDuration.Observe(time.Since(start).Seconds()) }()

	var report SweepReport
	var errs []error
	if err := s.completeStartedInstances(ctx, &report); err != nil {
		errs = append(errs, err)
	}
	if err := s.expireOffers(ctx, &report); err != nil {
		errs = append(errs, err)
	}
	if err := s.publishDueEvents(ctx, &report); err != nil {
		errs = append(errs, err)
	}

	log := s.Logger.WithFields(logrus.Fields{
		"completed": report.Completed,
		"expired":   report.Expired,
		"promoted":  report.Promoted,
		"published": report.Published,
		"failed":    report.Failed,
	})
	if report.Failed > 0 {
		log.Warn("sweep finished with failures")
	} else if report.Completed+report.Expired+report.Published > 0 {
		log.Info("sweep finished")
	} else {
		log.Debug("sweep finished, nothing to do")
	}
	return report, errors.Join(errs...)
}

func (s *Sweeper) completeStartedInstances(ctx context.Context, report *SweepReport) error {
	instances, err := s.Store.Repos().Instances.FindStartedActive(ctx, s.Clock(), s.batchSize)
	if err != nil {
		return fmt.Errorf("find started instances: %w", err)
	}
	for _, inst := range instances {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		closed := false
		err := s.runTx(ctx, "auto_complete", func(ctx context.Context, r output.Repos, out *outbox) error {
			closed = false
			instance, err := r.Instances.FindByIDForUpdate(ctx, inst.ID)
			if err != nil {
				return err
			}
			if !instance.IsOpen() || !instance.Enabled || !instance.Started(out.now) {
				return nil
			}
			closed = true
			return closeInstance(ctx, r, out, entities.SystemActor, instance, entities.InstanceCompleted)
		})
		if err != nil {
			report.Failed++
			s.Logger.WithField("instance_id", inst.ID).WithError(err).Error("auto-complete instance failed")
			continue
		}
		if closed {
			report.Completed++
		}
	}
	return nil
}

func (s *Sweeper) expireOffers(ctx context.Context, report *SweepReport) error {
	cutoff := s.Clock().Add(-s.Policy.OfferWindow)
	offers, err := s.Store.Repos().Signups.FindExpiredOffers(ctx, cutoff, s.batchSize)
	if err != nil {
		return fmt.Errorf("find expired offers: %w", err)
	}
	if len(offers) == 0 {
		return nil
	}

	var expired, promoted, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, offer := range offers {
		g.Go(func() error {
			n, ok, err := s.expireOffer(gctx, offer.ID, offer.InstanceID)
			if err != nil {
				failed.Add(1)
				s.Logger.WithFields(logrus.Fields{
					"signup_id":   offer.ID,
					"instance_id": offer.InstanceID,
				}).WithError(err).Error("expire offer failed")
				return nil
			}
			if ok {
				expired.Add(1)
				promoted.Add(int64(n))
			}
			return nil
		})
	}
	_ = g.Wait()
	report.Expired += int(expired.Load())
	report.Promoted += int(promoted.Load())
	report.Failed += int(failed.Load())
	return nil
}

// expireOffer deletes one expired offer and promotes the next waitlisted
// signup of its role. ok is false when the offer was resolved meanwhile.
func (s *Sweeper) expireOffer(ctx context.Context, signupID, instanceID uint) (promotedCount int, ok bool, err error) {
	err = s.runTx(ctx, "expire_offer", func(ctx context.Context, r output.Repos, out *outbox) error {
		promotedCount, ok = 0, false
		instance, err := r.Instances.FindByIDForUpdate(ctx, instanceID)
		if err != nil {
			return err
		}
		signup, err := r.Signups.FindByID(ctx, signupID)
		if errors.Is(err, domain.ErrSignupNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !signup.OfferExpired(out.now, s.Policy.OfferWindow) {
			return nil
		}
		if err := r.Signups.Delete(ctx, signup.ID); err != nil {
			return fmt.Errorf("delete expired offer: %w", err)
		}
		signup.Status = entities.StatusCancelled
		out.participant(entities.MsgOfferExpired, signup.ParticipantID, "", instance, signup.ID, nil)
		out.instance(entities.MsgSignupUpdated, instance.ID, signup)
		ok = true
		if !instance.IsOpen() || !instance.Enabled {
			return nil
		}
		promoted, err := s.promoter.PromoteWaitlisted(ctx, r.Signups, instance.ID, signup.Role, 1, out.now, TriggerExpiry)
		if err != nil {
			return err
		}
		promotedCount = len(promoted)
		out.offers(instance, promoted, s.Policy.OfferWindow)
		return nil
	})
	if err == nil && ok {
		offersResolved.WithLabelValues("expired").Inc()
	}
	return promotedCount, ok, err
}

func (s *Sweeper) publishDueEvents(ctx context.Context, report *SweepReport) error {
	events, err := s.Store.Repos().Events.FindDueForPublish(ctx, s.Clock(), s.batchSize)
	if err != nil {
		return fmt.Errorf("find events due for publication: %w", err)
	}
	for _, ev := range events {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		published := false
		err := s.runTx(ctx, "publish_due", func(ctx context.Context, r output.Repos, out *outbox) error {
			published = false
			event, err := r.Events.FindByID(ctx, ev.ID)
			if err != nil {
				return err
			}
			if !event.PublishDue(out.now) {
				return nil
			}
			published = true
			return publishEvent(ctx, r, out, event)
		})
		if err != nil {
			report.Failed++
			s.Logger.WithField("event_id", ev.ID).WithError(err).Error("scheduled publication failed")
			continue
		}
		if published {
			report.Published++
		}
	}
	return nil
}

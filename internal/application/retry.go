package application

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"

	"signupd/internal/domain"
)

// linearBackOff waits base, 2·base, 3·base... between attempts.
type linearBackOff struct {
	base    time.Duration
	attempt int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return b.base * time.Duration(b.attempt)
}

func (b *linearBackOff) Reset() { b.attempt = 0 }

// retry runs fn until it succeeds, fails with a non-transient error, or the
// attempt budget is spent. The last error is returned unchanged.
func (p Policy) retry(ctx context.Context, log logrus.FieldLogger, op string, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := fn()
		if err == nil {
			return struct{}{}, nil
		}
		if !domain.IsTransient(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		txRetries.WithLabelValues(op).Inc()
		log.WithFields(logrus.Fields{
			"op":      op,
			"attempt": attempt,
		}).WithError(err).Debug("transient store failure")
		return struct{}{}, err
	},
		backoff.WithBackOff(&linearBackOff{base: p.RetryBaseDelay}),
		backoff.WithMaxTries(uint(attempts)),
	)
	return err
}

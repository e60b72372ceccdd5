package monitor

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// Backoff computes poll delays as min(Base * Growth^attempt, Max)
type Backoff struct {
	Base   time.Duration
	Growth float64
	Max    time.Duration
}

// DefaultBackoff starts at one second and grows by half each attempt up to five seconds
var DefaultBackoff = Backoff{Base: time.Second, Growth: 1.5, Max: 5 * time.Second}

// Delay returns the wait before the poll following attempt
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := float64(b.Base) * math.Pow(b.Growth, float64(attempt))
	if d > float64(b.Max) || math.IsInf(d, 1) || math.IsNaN(d) {
		return b.Max
	}
	return time.Duration(d)
}

type sleepFunc func(ctx context.Context, d time.Duration) error

// sleepCtx waits for d or until ctx is done
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// retryPolicy is the bounded retry wrapper around the poll cycle. Escalations
// are counted over the whole job and never reset.
type retryPolicy struct {
	max     int
	wait    time.Duration
	sleep   sleepFunc
	logger  *logrus.Entry
	onRetry func(escalation int, err error)
}

func (r retryPolicy) do(ctx context.Context, fn func() error) error {
	escalations := 0
	for {
		err := fn()

		var transient *transientError
		if !errors.As(err, &transient) {
			return err
		}
		if escalations >= r.max {
			return &NetworkError{Retries: escalations, Err: transient.err}
		}

		escalations++
		r.logger.WithFields(logrus.Fields{
			"escalation": escalations,
			"max":        r.max,
			"error":      transient.err.Error(),
		}).Warn("Network failure while polling, retrying")
		if r.onRetry != nil {
			r.onRetry(escalations, transient.err)
		}

		if err := r.sleep(ctx, r.wait); err != nil {
			return err
		}
	}
}

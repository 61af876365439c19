package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ExpiredDeactivator is the part of the store the sweeper needs
type ExpiredDeactivator interface {
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper marks expired links inactive in the store. It never touches the cache.
type Sweeper struct {
	store  ExpiredDeactivator
	now    func() time.Time
	logger *logrus.Entry
}

// NewSweeper creates a sweeper; now may be nil to use the wall clock
func NewSweeper(store ExpiredDeactivator, now func() time.Time, log *logrus.Logger) *Sweeper {
	if now == nil {
		now = utcNow
	}
	return &Sweeper{
		store:  store,
		now:    now,
		logger: log.WithField("module", "service/sweeper"),
	}
}

// Sweep deactivates every active link that has expired and returns how many changed
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	n, err := s.store.DeactivateExpired(ctx, s.now())
	if err != nil {
		return 0, errors.Wrap(storeErr(err), "sweep expired links")
	}
	return n, nil
}

// Run sweeps every interval until ctx is done
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.WithField("interval", interval.String()).Info("expiry sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				s.logger.WithError(err).Error("sweep failed")
				continue
			}
			if n > 0 {
				s.logger.WithField("deactivated", n).Info("expired links deactivated")
			}
		}
	}
}

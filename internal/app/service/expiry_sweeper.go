package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ExpiredDeleter removes records whose expiry has passed.
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ExpirySweeper periodically deletes expired records from stores without native TTL.
type ExpirySweeper struct {
	logger   *zap.Logger
	store    ExpiredDeleter
	interval time.Duration
	now      func() time.Time
	stopChan chan struct{}
	done     chan struct{}
}

// NewExpirySweeper creates a sweeper that runs every interval.
func NewExpirySweeper(logger *zap.Logger, store ExpiredDeleter, interval time.Duration) *ExpirySweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ExpirySweeper{
		logger:   logger,
		store:    store,
		interval: interval,
		now:      time.Now,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the periodic sweep.
func (s *ExpirySweeper) Start() {
	go s.run()
}

// Stop stops the sweep and waits for an in-flight pass to finish.
func (s *ExpirySweeper) Stop() {
	close(s.stopChan)
	<-s.done
}

func (s *ExpirySweeper) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.stopChan:
			s.logger.Info("expiry sweeper stopped")
			return
		}
	}
}

// Sweep runs one deletion pass and returns the number of removed records.
func (s *ExpirySweeper) Sweep(ctx context.Context) int64 {
	now := s.now()

	deleted, err := s.store.DeleteExpired(ctx, now)
	if err != nil {
		s.logger.Error("failed to delete expired resources", zap.Error(err))
		return 0
	}

	if deleted > 0 {
		s.logger.Info("deleted expired resources",
			zap.Int64("count", deleted),
			zap.Time("expired_before", now),
		)
	}
	return deleted
}

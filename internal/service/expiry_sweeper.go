package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type staleRequestExpirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

// ExpirySweeper periodically expires stale extension requests so they do not
// wait for the next read to flip.
type ExpirySweeper struct {
	expirer  staleRequestExpirer
	interval time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewExpirySweeper returns an idle sweeper. A non positive interval disables it.
func NewExpirySweeper(expirer staleRequestExpirer, interval time.Duration, logger *zap.Logger) *ExpirySweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpirySweeper{expirer: expirer, interval: interval, logger: logger}
}

// Start launches the ticker loop. It is a no-op when disabled or running.
func (s *ExpirySweeper) Start(ctx context.Context) {
	if s.interval <= 0 || s.expirer == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
	s.logger.Info("expiry sweeper started", zap.Duration("interval", s.interval))
}

// Stop halts the loop and waits for an in-flight sweep.
func (s *ExpirySweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *ExpirySweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.expirer.ExpireStale(ctx); err != nil {
				s.logger.Warn("scheduled expiry sweep failed", zap.Error(err))
			}
		}
	}
}

package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/amotivv/youtube-tools-llm-context/telemetry"
)

// SweeperConfig holds retention sweep configuration.
type SweeperConfig struct {
	// Interval is how often the sweep runs. Default is 1 hour.
	Interval time.Duration

	// Logger for sweep events.
	Logger *slog.Logger
}

// Sweeper runs the retention sweep on a fixed interval, independent of
// request handling. Failures are logged and never stop the loop.
type Sweeper struct {
	store  *Store
	config SweeperConfig
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	running bool
	stopped bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSweeper creates a sweeper for the given store.
func NewSweeper(store *Store, cfg SweeperConfig) *Sweeper {
	if cfg.Interval == 0 {
		cfg.Interval = 1 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Sweeper{
		store:  store,
		config: cfg,
		logger: cfg.Logger,
		now:    time.Now,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins background sweeping. Calling Start more than once is a no-op.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running || s.stopped {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	go s.run(ctx)
}

// Stop stops background sweeping and waits for the loop to exit.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running || s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	close(s.stopCh)
	<-s.doneCh
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Run immediately on start.
	s.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep pass.
func (s *Sweeper) RunOnce(ctx context.Context) {
	s.runOnce(ctx)
}

func (s *Sweeper) runOnce(ctx context.Context) {
	start := s.now()
	result, err := s.store.Sweep(ctx, start)
	if err != nil {
		s.logger.Error("sweep failed", "error", err)
		return
	}

	telemetry.RecordSweep(ctx, result.Removed, result.BytesFreed)

	if result.Removed > 0 || result.Errors > 0 {
		s.logger.Info("sweep complete",
			"removed", result.Removed,
			"bytes_freed", result.BytesFreed,
			"errors", result.Errors,
			"duration", s.now().Sub(start),
		)
	} else {
		s.logger.Debug("sweep complete, nothing to remove")
	}
}

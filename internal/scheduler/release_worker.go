// Package scheduler runs the background delivery loop: releasing scheduled
// gifts and advancing armed inactivity checks.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/parting-gifts/internal/logging"
)

// Releaser is the slice of the gift service the worker drives.
type Releaser interface {
	ReleaseDue(ctx context.Context, now time.Time) error
	ProcessInactivity(ctx context.Context, now time.Time) error
}

// ReleaseWorker polls for due gifts and inactivity checks on a fixed
// interval. Delivery work that fails is retried on the next poll.
type ReleaseWorker struct {
	releaser     Releaser
	pollInterval time.Duration
	running      bool
	mu           sync.RWMutex
	stopCh       chan struct{}
	doneCh       chan struct{}
	lastPollTime time.Time
	logger       *logging.Logger
}

// NewReleaseWorker creates a new release worker
func NewReleaseWorker(releaser Releaser, pollInterval time.Duration) (*ReleaseWorker, error) {
	if releaser == nil {
		return nil, fmt.Errorf("releaser cannot be nil")
	}
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}

	return &ReleaseWorker{
		releaser:     releaser,
		pollInterval: pollInterval,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
		logger:       logging.GetGlobalLogger().WithField("worker", "release"),
	}, nil
}

// Start begins the polling loop
func (w *ReleaseWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("release worker is already running")
	}
	w.running = true
	w.mu.Unlock()

	w.logger.WithField("poll_interval", w.pollInterval.String()).Info("starting release worker")

	go w.pollLoop(ctx)
	return nil
}

// Stop gracefully stops the worker
func (w *ReleaseWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return fmt.Errorf("release worker is not running")
	}
	w.mu.Unlock()

	close(w.stopCh)

	select {
	case <-w.doneCh:
		w.logger.Info("release worker stopped")
	case <-ctx.Done():
		w.logger.Warn("release worker stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	return nil
}

// IsRunning reports whether the polling loop is active.
func (w *ReleaseWorker) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// LastPollTime returns when the worker last completed a poll.
func (w *ReleaseWorker) LastPollTime() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastPollTime
}

func (w *ReleaseWorker) pollLoop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	// Run one poll immediately so due work is not delayed by a full interval.
	w.poll(ctx)

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *ReleaseWorker) poll(ctx context.Context) {
	now := time.Now()

	if err := w.releaser.ReleaseDue(ctx, now); err != nil {
		w.logger.WithError(err).Error("gift release poll failed")
	}
	if err := w.releaser.ProcessInactivity(ctx, now); err != nil {
		w.logger.WithError(err).Error("inactivity poll failed")
	}

	w.mu.Lock()
	w.lastPollTime = now
	w.mu.Unlock()
}

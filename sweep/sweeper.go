package sweep

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"taskpulse/domain"
)

// Storage is the slice of the task store the sweeper needs.
type Storage interface {
	ListTasks(ctx context.Context) ([]domain.Task, error)
	MarkNotified(ctx context.Context, id int) (bool, error)
}

// Notifier delivers one reminder and reports transport-level acceptance.
type Notifier interface {
	Notify(ctx context.Context, t domain.Task) bool
}

const (
	// DefaultInterval is the wall-clock spacing between sweeps.
	DefaultInterval = time.Hour
	// DefaultWindow is the lookahead before a due date that makes a task
	// eligible for its reminder.
	DefaultWindow = time.Hour
)

// Sweeper periodically scans all tasks and sends at most one reminder per
// task as its due date approaches. A reminder that fails to send leaves the
// task eligible, so the next sweep retries it.
type Sweeper struct {
	store    Storage
	notifier Notifier
	interval time.Duration
	window   time.Duration
	logger   *log.Logger
	now      func() time.Time

	started   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// New creates a Sweeper. Non-positive interval or window select the
// defaults.
func New(store Storage, notifier Notifier, interval, window time.Duration, logger *log.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Sweeper{
		store:    store,
		notifier: notifier,
		interval: interval,
		window:   window,
		logger:   logger,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the sweep loop. The loop is a single goroutine, so ticks
// never overlap: a slow sweep delays the next tick instead of running
// concurrently with it.
func (s *Sweeper) Start() {
	s.startOnce.Do(func() {
		s.started.Store(true)
		go s.run()
	})
}

func (s *Sweeper) run() {
	defer close(s.doneCh)
	s.logger.Infof("sweep: started, interval=%v, window=%v", s.interval, s.window)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Stop ends the loop and waits for an in-flight sweep to finish. Calling
// Stop more than once, or without a prior Start, is safe.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	if s.started.Load() {
		<-s.doneCh
	}
}

// Sweep runs one due-task scan: every task that has a due date inside the
// window and no reminder yet gets one notification attempt, and the sent
// flag is persisted per task immediately after a confirmed send.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.now()
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		s.logger.WithError(err).Error("sweep: list tasks failed")
		return
	}

	for _, t := range tasks {
		if t.NotificationSent || !t.DueWithin(now, s.window) {
			continue
		}
		if !s.notifier.Notify(ctx, t) {
			// Left unmarked so the next sweep retries.
			continue
		}
		if _, err := s.store.MarkNotified(ctx, t.ID); err != nil {
			s.logger.WithError(err).Errorf("sweep: mark task %d notified failed", t.ID)
		}
	}
}

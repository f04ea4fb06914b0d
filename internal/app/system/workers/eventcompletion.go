// internal/app/system/workers/eventcompletion.go
package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Completer moves ended events to completed.
type Completer interface {
	CompleteEnded(ctx context.Context, now time.Time) (int64, error)
}

// EventCompletion is a background worker that marks published events as
// completed once their end date has passed.
type EventCompletion struct {
	events   Completer
	log      *zap.Logger
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewEventCompletion creates the worker. interval is how often it sweeps.
func NewEventCompletion(events Completer, logger *zap.Logger, interval time.Duration) *EventCompletion {
	return &EventCompletion{
		events:   events,
		log:      logger,
		interval: interval,
		timeout:  30 * time.Second,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start runs one sweep immediately and then one per interval.
func (w *EventCompletion) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("event completion worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish. It is safe to
// call more than once.
func (w *EventCompletion) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("event completion worker stopped")
	})
}

func (w *EventCompletion) run() {
	defer w.wg.Done()

	w.Sweep()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.Sweep()
		}
	}
}

// Sweep completes ended events once and returns how many changed.
func (w *EventCompletion) Sweep() int64 {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	count, err := w.events.CompleteEnded(ctx, w.now())
	if err != nil {
		w.log.Error("failed to complete ended events", zap.Error(err))
		return 0
	}

	if count > 0 {
		w.log.Info("completed ended events", zap.Int64("count", count))
	}
	return count
}

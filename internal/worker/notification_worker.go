package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/account-console/internal/config"
	"github.com/spec-kit/account-console/internal/notify"
)

// ErrQueueFull is returned when the delivery backlog is at capacity.
var ErrQueueFull = errors.New("notification queue is full")

// NotificationWorker moves email delivery off the request path. It satisfies
// notify.Sender so the notification service can enqueue without knowing.
type NotificationWorker struct {
	next        notify.Sender
	logger      *zap.Logger
	queue       chan notify.Email
	workers     int
	maxAttempts int
	backoff     time.Duration
	wg          sync.WaitGroup
}

// NewNotificationWorker wraps next with a bounded queue.
func NewNotificationWorker(next notify.Sender, cfg config.NotificationConfig, logger *zap.Logger) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = 100
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return &NotificationWorker{
		next:        next,
		logger:      logger,
		queue:       make(chan notify.Email, size),
		workers:     workers,
		maxAttempts: attempts,
		backoff:     500 * time.Millisecond,
	}
}

// Send enqueues email for delivery. It never blocks.
func (w *NotificationWorker) Send(email notify.Email) error {
	select {
	case w.queue <- email:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start launches the delivery goroutines. They drain the queue until ctx is done.
func (w *NotificationWorker) Start(ctx context.Context) {
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.loop(ctx)
		}()
	}
}

// Wait blocks until every delivery goroutine has returned.
func (w *NotificationWorker) Wait() {
	w.wg.Wait()
}

func (w *NotificationWorker) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case email := <-w.queue:
			w.deliver(ctx, email)
		}
	}
}

func (w *NotificationWorker) deliver(ctx context.Context, email notify.Email) {
	var err error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		if err = w.next.Send(email); err == nil {
			return
		}
		if attempt == w.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.backoff * time.Duration(attempt)):
		}
	}
	w.logger.Error("notification delivery failed",
		zap.Strings("to", email.To),
		zap.String("subject", email.Subject),
		zap.Int("attempts", w.maxAttempts),
		zap.Error(err),
	)
}

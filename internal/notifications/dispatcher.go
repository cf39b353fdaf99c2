package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"threadline/internal/featureflags"
	"threadline/internal/models"
	"threadline/internal/observability"
	"threadline/internal/repository"
)

// Publisher pushes a serialized notification to a user's live sessions.
type Publisher interface {
	PublishUser(ctx context.Context, userID string, payload string) error
}

// DispatcherConfig sizes the worker pool.
type DispatcherConfig struct {
	Workers   int
	QueueSize int
	// Timeout bounds one notification write.
	Timeout time.Duration
}

type job struct {
	ctx          context.Context
	notification models.Notification
}

// Dispatcher records notifications on a bounded queue served by a fixed
// set of workers. Enqueueing never blocks the caller: when the queue is full
// or the dispatcher is stopped the notification is dropped and counted.
type Dispatcher struct {
	store     repository.Store[models.Notification]
	publisher Publisher
	flags     *featureflags.Manager
	cfg       DispatcherConfig

	mu      sync.RWMutex
	jobs    chan job
	started bool
	stopped bool
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher. publisher and flags may be nil, which
// disables realtime push.
func NewDispatcher(
	store repository.Store[models.Notification], publisher Publisher, flags *featureflags.Manager, cfg DispatcherConfig,
) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Dispatcher{
		store:     store,
		publisher: publisher,
		flags:     flags,
		cfg:       cfg,
		jobs:      make(chan job, cfg.QueueSize),
	}
}

// Start launches the workers. They exit when Stop is called and the queue is drained.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped {
		return
	}
	d.started = true

	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for j := range d.jobs {
				observability.NotificationQueueDepth.Set(float64(len(d.jobs)))
				d.process(j)
			}
		}()
	}
	observability.Logger.InfoContext(ctx, "Notification dispatcher started",
		slog.Int("workers", d.cfg.Workers), slog.Int("queue_size", d.cfg.QueueSize))
}

// Stop refuses new notifications and waits for queued ones to be written,
// or for ctx to expire.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.jobs)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notification dispatcher drain: %w", ctx.Err())
	}
}

// NotifyLike tells the post author that actorID liked postID.
func (d *Dispatcher) NotifyLike(ctx context.Context, recipientID, actorID, postID string, extra map[string]any) {
	d.enqueue(ctx, models.NotificationLike, recipientID, actorID, postID, extra)
}

// NotifyReply tells the thread or reply author about a new reply.
func (d *Dispatcher) NotifyReply(ctx context.Context, recipientID, actorID, replyID string, extra map[string]any) {
	d.enqueue(ctx, models.NotificationReply, recipientID, actorID, replyID, extra)
}

// NotifyFollow tells recipientID that actorID followed them.
func (d *Dispatcher) NotifyFollow(ctx context.Context, recipientID, actorID, targetID string, extra map[string]any) {
	d.enqueue(ctx, models.NotificationFollow, recipientID, actorID, targetID, extra)
}

func (d *Dispatcher) enqueue(
	ctx context.Context, kind models.NotificationKind, recipientID, actorID, targetID string, extra map[string]any,
) {
	if recipientID == "" || recipientID == actorID {
		observability.Notifications.WithLabelValues(string(kind), "suppressed").Inc()
		return
	}

	j := job{
		ctx: context.WithoutCancel(ctx),
		notification: models.Notification{
			ID:          models.NewID(),
			RecipientID: recipientID,
			ActorID:     actorID,
			Kind:        kind,
			TargetID:    targetID,
			Extra:       extra,
			CreatedAt:   models.Now(),
		},
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		d.drop(ctx, j, "stopped")
		return
	}
	select {
	case d.jobs <- j:
		observability.NotificationQueueDepth.Set(float64(len(d.jobs)))
	default:
		d.drop(ctx, j, "queue_full")
	}
}

func (d *Dispatcher) drop(ctx context.Context, j job, reason string) {
	observability.Notifications.WithLabelValues(string(j.notification.Kind), "dropped").Inc()
	observability.Logger.WarnContext(ctx, "Notification dropped",
		slog.String("reason", reason),
		slog.String("kind", string(j.notification.Kind)),
		slog.String("recipient_id", j.notification.RecipientID))
}

func (d *Dispatcher) process(j job) {
	n := j.notification
	fields := map[string]interface{}{
		"kind":         string(n.Kind),
		"recipient_id": n.RecipientID,
		"target_id":    n.TargetID,
	}

	defer func() {
		if r := recover(); r != nil {
			observability.Notifications.WithLabelValues(string(n.Kind), "failed").Inc()
			observability.Logger.ErrorContext(j.ctx, "Panic while creating notification",
				slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
		}
	}()

	ctx, cancel := context.WithTimeout(j.ctx, d.cfg.Timeout)
	defer cancel()

	observability.LogAsyncOperationStart(ctx, "notification.create", fields)
	if err := d.store.Create(ctx, &n); err != nil {
		observability.Notifications.WithLabelValues(string(n.Kind), "failed").Inc()
		observability.LogAsyncOperationError(ctx, "notification.create", err, fields)
		return
	}
	observability.Notifications.WithLabelValues(string(n.Kind), "created").Inc()
	observability.LogAsyncOperationEnd(ctx, "notification.create", fields)

	d.publish(ctx, &n)
}

// Envelope is the websocket message carrying one notification.
type Envelope struct {
	Type    string               `json:"type"`
	Payload *models.Notification `json:"payload"`
}

func (d *Dispatcher) publish(ctx context.Context, n *models.Notification) {
	if d.publisher == nil || !d.flags.Enabled(featureflags.NotifyRealtime, n.RecipientID) {
		return
	}
	data, err := json.Marshal(Envelope{Type: "notification", Payload: n})
	if err != nil {
		return
	}
	if err := d.publisher.PublishUser(ctx, n.RecipientID, string(data)); err != nil {
		observability.Logger.WarnContext(ctx, "Notification publish failed",
			slog.String("recipient_id", n.RecipientID), slog.String("error", err.Error()))
	}
}

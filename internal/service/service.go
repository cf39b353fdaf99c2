// Package service implements the interaction and feed engine on top of the
// document store: like and follow edges with their counters, thread and
// reply creation, feed assembly, and the notification inbox.
package service

import (
	"context"
	"log/slog"
	"sync"

	"threadline/internal/models"
	"threadline/internal/observability"
	"threadline/internal/repository"
)

// Notifier receives fire-and-forget notification requests. Implementations
// must return immediately and never fail the caller.
type Notifier interface {
	NotifyLike(ctx context.Context, recipientID, actorID, targetID string, extra map[string]any)
	NotifyReply(ctx context.Context, recipientID, actorID, targetID string, extra map[string]any)
	NotifyFollow(ctx context.Context, recipientID, actorID, targetID string, extra map[string]any)
}

type noopNotifier struct{}

func (noopNotifier) NotifyLike(context.Context, string, string, string, map[string]any)   {}
func (noopNotifier) NotifyReply(context.Context, string, string, string, map[string]any)  {}
func (noopNotifier) NotifyFollow(context.Context, string, string, string, map[string]any) {}

func orNoop(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}

// keyLocker serializes work per string key within this process. Entries are
// reference counted and removed when the last holder unlocks.
type keyLocker struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyLocker() *keyLocker {
	return &keyLocker{locks: make(map[string]*refMutex)}
}

// Lock blocks until key is free and returns the matching unlock.
func (k *keyLocker) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyLocker) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

// setCounter writes a denormalized counter. Failures are logged and counted
// but not returned: the edge that triggered the write already exists and the
// reconciler repairs the count later.
func setCounter(ctx context.Context, posts repository.Store[models.Post], postID, field string, value int) {
	if value < 0 {
		value = 0
	}
	if err := posts.Update(ctx, postID, repository.Patch{field: value}); err != nil {
		observability.CounterSoftFailures.WithLabelValues(field).Inc()
		observability.Logger.WarnContext(ctx, "Counter update failed after edge mutation",
			slog.String("post_id", postID),
			slog.String("counter", field),
			slog.Int("value", value),
			slog.String("error", err.Error()))
	}
}

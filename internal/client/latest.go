package client

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded is returned for a request that finished after a newer one was issued.
var ErrSuperseded = errors.New("client: request superseded by a newer one")

// Latest runs supersedable reads such as feed refreshes or search-as-you-type.
// Each Do cancels the previous request and only the newest result is delivered.
type Latest[T any] struct {
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

func (l *Latest[T]) Do(ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.seq++
	seq := l.seq
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.mu.Unlock()
	defer cancel()

	v, err := fn(ctx)

	l.mu.Lock()
	current := seq == l.seq
	if current {
		l.cancel = nil
	}
	l.mu.Unlock()

	if !current {
		var zero T
		return zero, ErrSuperseded
	}
	return v, err
}

// Cancel aborts the in-flight request, if any.
func (l *Latest[T]) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.seq++
}

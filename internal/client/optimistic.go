package client

import (
	"context"
	"sync"
)

// State is the lifecycle of a Mutation.
type State int

const (
	StateIdle State = iota
	StatePending
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Hooks customize a Mutation. OnMutate applies the optimistic change and
// returns the rollback context handed to OnSuccess or OnError.
type Hooks[V, R, C any] struct {
	OnMutate  func(vars V) C
	OnSuccess func(result R, vars V, rollback C)
	OnError   func(err error, vars V, rollback C)
}

// Operation performs the server call of a Mutation.
type Operation[V, R any] func(ctx context.Context, vars V) (R, error)

// Mutation applies a local change before the server confirms it and rolls it
// back if the server refuses. At most one call is in flight; later calls wait
// for it to settle before their OnMutate runs.
type Mutation[V, R, C any] struct {
	op    Operation[V, R]
	hooks Hooks[V, R, C]

	slot chan struct{}

	mu    sync.Mutex
	state State
	err   error
}

func NewMutation[V, R, C any](op Operation[V, R], hooks Hooks[V, R, C]) *Mutation[V, R, C] {
	return &Mutation[V, R, C]{
		op:    op,
		hooks: hooks,
		slot:  make(chan struct{}, 1),
	}
}

// Mutate runs OnMutate, the operation, then OnSuccess or OnError, all on the
// calling goroutine. If another call is in flight it waits, giving up when
// ctx is done.
func (m *Mutation[V, R, C]) Mutate(ctx context.Context, vars V) (R, error) {
	var zero R
	select {
	case m.slot <- struct{}{}:
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	defer func() { <-m.slot }()

	m.set(StatePending, nil)

	var rollback C
	if m.hooks.OnMutate != nil {
		rollback = m.hooks.OnMutate(vars)
	}

	result, err := m.op(ctx, vars)
	if err != nil {
		if m.hooks.OnError != nil {
			m.hooks.OnError(err, vars, rollback)
		}
		m.set(StateError, err)
		return zero, err
	}

	if m.hooks.OnSuccess != nil {
		m.hooks.OnSuccess(result, vars, rollback)
	}
	m.set(StateSuccess, nil)
	return result, nil
}

func (m *Mutation[V, R, C]) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err is the error of the last settled call, if it failed.
func (m *Mutation[V, R, C]) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Reset returns a settled mutation to idle. It does nothing while a call is pending.
func (m *Mutation[V, R, C]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StatePending {
		return
	}
	m.state, m.err = StateIdle, nil
}

func (m *Mutation[V, R, C]) set(s State, err error) {
	m.mu.Lock()
	m.state, m.err = s, err
	m.mu.Unlock()
}

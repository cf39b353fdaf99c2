package client

import (
	"context"
	"sync"
)

type FollowAPI interface {
	Follow(ctx context.Context, userID string) (FollowState, error)
	Unfollow(ctx context.Context, userID string) (FollowState, error)
}

// FollowSnapshot is the local follow state before an optimistic toggle.
type FollowSnapshot struct {
	WasFollowing bool
}

// FollowToggle holds whether the local user follows one account.
type FollowToggle struct {
	api    FollowAPI
	userID string

	mu        sync.RWMutex
	following bool

	mutation *Mutation[string, FollowState, FollowSnapshot]
}

func NewFollowToggle(api FollowAPI, userID string, following bool) *FollowToggle {
	t := &FollowToggle{api: api, userID: userID, following: following}
	t.mutation = NewMutation(t.send, Hooks[string, FollowState, FollowSnapshot]{
		OnMutate:  t.apply,
		OnSuccess: t.confirm,
		OnError:   t.rollback,
	})
	return t
}

// Toggle follows or unfollows depending on the local state when the call
// reaches the head of the queue.
func (t *FollowToggle) Toggle(ctx context.Context) error {
	_, err := t.mutation.Mutate(ctx, t.userID)
	return err
}

func (t *FollowToggle) Following() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.following
}

func (t *FollowToggle) State() State { return t.mutation.State() }

func (t *FollowToggle) Reset() { t.mutation.Reset() }

// send runs after apply, so the local state is the one to reach.
func (t *FollowToggle) send(ctx context.Context, userID string) (FollowState, error) {
	if t.Following() {
		return t.api.Follow(ctx, userID)
	}
	return t.api.Unfollow(ctx, userID)
}

func (t *FollowToggle) apply(string) FollowSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap := FollowSnapshot{WasFollowing: t.following}
	t.following = !t.following
	return snap
}

func (t *FollowToggle) confirm(server FollowState, _ string, _ FollowSnapshot) {
	t.mu.Lock()
	t.following = server.IsFollowing
	t.mu.Unlock()
}

func (t *FollowToggle) rollback(_ error, _ string, snap FollowSnapshot) {
	t.mu.Lock()
	t.following = snap.WasFollowing
	t.mu.Unlock()
}

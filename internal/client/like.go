package client

import (
	"context"
	"sync"
)

type LikeAPI interface {
	ToggleLike(ctx context.Context, postID string) (LikeState, error)
}

// LikeSnapshot is the local like state before an optimistic toggle.
type LikeSnapshot struct {
	WasLiked  bool
	PrevCount int
}

// LikeToggle holds the local like state of one post.
type LikeToggle struct {
	postID string

	mu    sync.RWMutex
	liked bool
	count int

	mutation *Mutation[string, LikeState, LikeSnapshot]
}

// NewLikeToggle starts from the state last seen for postID, usually a feed item.
func NewLikeToggle(api LikeAPI, postID string, liked bool, likeCount int) *LikeToggle {
	t := &LikeToggle{postID: postID, liked: liked, count: likeCount}
	t.mutation = NewMutation(api.ToggleLike, Hooks[string, LikeState, LikeSnapshot]{
		OnMutate:  t.apply,
		OnSuccess: t.confirm,
		OnError:   t.rollback,
	})
	return t
}

// Toggle flips the local state immediately and reconciles it with the server.
func (t *LikeToggle) Toggle(ctx context.Context) error {
	_, err := t.mutation.Mutate(ctx, t.postID)
	return err
}

// Current is the locally visible state.
func (t *LikeToggle) Current() LikeState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return LikeState{Liked: t.liked, LikeCount: t.count}
}

func (t *LikeToggle) State() State { return t.mutation.State() }

func (t *LikeToggle) Reset() { t.mutation.Reset() }

func (t *LikeToggle) apply(string) LikeSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := LikeSnapshot{WasLiked: t.liked, PrevCount: t.count}
	t.liked = !t.liked
	if t.liked {
		t.count++
	} else if t.count > 0 {
		t.count--
	}
	return snap
}

func (t *LikeToggle) confirm(server LikeState, _ string, _ LikeSnapshot) {
	t.mu.Lock()
	t.liked, t.count = server.Liked, server.LikeCount
	t.mu.Unlock()
}

func (t *LikeToggle) rollback(_ error, _ string, snap LikeSnapshot) {
	t.mu.Lock()
	t.liked, t.count = snap.WasLiked, snap.PrevCount
	t.mu.Unlock()
}

package service

import (
	"context"
	"sync"
	"testing"

	"threadline/internal/models"
	"threadline/internal/repository"
	"threadline/internal/testutil"
)

type notifyCall struct {
	Kind      models.NotificationKind
	Recipient string
	Actor     string
	Target    string
	Extra     map[string]any
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

func (n *recordingNotifier) record(kind models.NotificationKind, recipient, actor, target string, extra map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{kind, recipient, actor, target, extra})
}

func (n *recordingNotifier) NotifyLike(_ context.Context, r, a, t string, e map[string]any) {
	n.record(models.NotificationLike, r, a, t, e)
}

func (n *recordingNotifier) NotifyReply(_ context.Context, r, a, t string, e map[string]any) {
	n.record(models.NotificationReply, r, a, t, e)
}

func (n *recordingNotifier) NotifyFollow(_ context.Context, r, a, t string, e map[string]any) {
	n.record(models.NotificationFollow, r, a, t, e)
}

func (n *recordingNotifier) Calls() []notifyCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifyCall(nil), n.calls...)
}

type fixture struct {
	store    *repository.InteractionStore
	notifier *recordingNotifier
	likes    *LikeService
	follows  *FollowService
	feed     *FeedService
	posts    *PostService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := testutil.NewSQLiteStore(t)
	n := &recordingNotifier{}
	likes := NewLikeService(store.Posts, store.Likes, n)
	follows := NewFollowService(store.Follows, store.Profiles, n)
	feed := NewFeedService(store.Posts, store.Profiles, nil, likes, follows)
	return &fixture{
		store:    store,
		notifier: n,
		likes:    likes,
		follows:  follows,
		feed:     feed,
		posts:    NewPostService(store.Posts, feed, n),
	}
}

func (f *fixture) likeCount(t *testing.T, postID string) int {
	t.Helper()
	p, err := f.store.Posts.Get(context.Background(), postID)
	if err != nil {
		t.Fatalf("get post %s: %v", postID, err)
	}
	return p.LikeCount
}

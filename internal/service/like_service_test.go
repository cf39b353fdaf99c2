package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"threadline/internal/models"
	"threadline/internal/repository"
	"threadline/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLikeService_LikeUnlikeScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.SeedProfile(t, f.store, "author")
	a := testutil.SeedProfile(t, f.store, "a")
	post := testutil.SeedPost(t, f.store, author.ID, "hello")

	require.NoError(t, f.likes.Like(ctx, a.ID, post.ID))
	assert.Equal(t, 1, f.likeCount(t, post.ID))

	assert.ErrorIs(t, f.likes.Like(ctx, a.ID, post.ID), models.ErrAlreadyLiked)
	assert.Equal(t, 1, f.likeCount(t, post.ID))

	require.NoError(t, f.likes.Unlike(ctx, a.ID, post.ID))
	assert.Equal(t, 0, f.likeCount(t, post.ID))

	assert.ErrorIs(t, f.likes.Unlike(ctx, a.ID, post.ID), models.ErrNotLiked)
	assert.Equal(t, 0, f.likeCount(t, post.ID))
}

func TestLikeService_LikeMissingPost(t *testing.T) {
	f := newFixture(t)
	err := f.likes.Like(context.Background(), "u1", "missing")
	assert.True(t, models.IsNotFound(err))

	n, err := f.store.Likes.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "no edge is created for a missing post")
}

func TestLikeService_ToggleParity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.SeedProfile(t, f.store, "author")
	user := testutil.SeedProfile(t, f.store, "user")
	post := testutil.SeedPost(t, f.store, author.ID, "hello")

	for i := 1; i <= 7; i++ {
		liked, count, err := f.likes.Toggle(ctx, user.ID, post.ID)
		require.NoError(t, err)
		assert.Equal(t, i%2 == 1, liked, "toggle %d", i)
		assert.GreaterOrEqual(t, count, 0)

		has, _, err := f.likes.HasLiked(ctx, user.ID, post.ID)
		require.NoError(t, err)
		assert.Equal(t, i%2 == 1, has)
		assert.Equal(t, count, f.likeCount(t, post.ID), "returned count is the stored count")
	}
}

func TestLikeService_UnlikeNeverGoesNegative(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.SeedProfile(t, f.store, "author")
	post := testutil.SeedPost(t, f.store, author.ID, "undercounted")

	// An edge exists but the counter never recorded it.
	require.NoError(t, f.store.Likes.Create(ctx, &models.Like{
		ID: models.NewID(), UserID: "u1", PostID: post.ID, CreatedAt: models.Now(),
	}))

	liked, count, err := f.likes.Toggle(ctx, "u1", post.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Equal(t, 0, count)
}

func TestLikeService_CounterFailureIsSoft(t *testing.T) {
	store := testutil.NewSQLiteStore(t)
	posts := testutil.NewSpyStore(store.Posts)
	posts.UpdateErr = errors.New("write timeout")
	n := &recordingNotifier{}
	svc := NewLikeService(posts, store.Likes, n)

	author := testutil.SeedProfile(t, store, "author")
	post := testutil.SeedPost(t, store, author.ID, "hello")

	require.NoError(t, svc.Like(context.Background(), "fan", post.ID))
	liked, _, err := svc.HasLiked(context.Background(), "fan", post.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, int64(1), posts.Updates.Load())
	assert.Len(t, n.Calls(), 1)
}

func TestLikeService_NotifiesPostAuthor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.SeedProfile(t, f.store, "author")
	post := testutil.SeedPost(t, f.store, author.ID, "hello")

	require.NoError(t, f.likes.Like(ctx, "fan", post.ID))
	require.NoError(t, f.likes.Unlike(ctx, "fan", post.ID))

	calls := f.notifier.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, notifyCall{Kind: models.NotificationLike, Recipient: author.ID, Actor: "fan", Target: post.ID}, calls[0])
}

func TestLikeService_ConcurrentLikesCreateOneEdge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.SeedProfile(t, f.store, "author")
	post := testutil.SeedPost(t, f.store, author.ID, "hello")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		conflict int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := f.likes.Like(ctx, "fan", post.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, models.ErrAlreadyLiked):
				conflict++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 9, conflict)
	assert.Equal(t, 1, f.likeCount(t, post.ID))
	assert.Zero(t, f.likes.locks.size())
}

func TestLikeService_Status(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.SeedProfile(t, f.store, "author")
	post := testutil.SeedPost(t, f.store, author.ID, "hello")
	require.NoError(t, f.likes.Like(ctx, "fan", post.ID))

	liked, count, err := f.likes.Status(ctx, "", post.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Equal(t, 1, count)

	liked, _, err = f.likes.Status(ctx, "fan", post.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	_, _, err = f.likes.Status(ctx, "fan", "missing")
	assert.True(t, models.IsNotFound(err))
}

func TestLikeService_BatchLikeStatus(t *testing.T) {
	store := testutil.NewSQLiteStore(t)
	likes := testutil.NewSpyStore(store.Likes)
	svc := NewLikeService(store.Posts, likes, nil)
	ctx := context.Background()

	t.Run("empty input makes no store call", func(t *testing.T) {
		got, err := svc.BatchLikeStatus(ctx, "u1", nil)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Zero(t, likes.Calls())
	})

	t.Run("defaults to false and flips matches", func(t *testing.T) {
		author := testutil.SeedProfile(t, store, "author")
		p1 := testutil.SeedPost(t, store, author.ID, "one")
		p2 := testutil.SeedPost(t, store, author.ID, "two")
		require.NoError(t, svc.Like(ctx, "u1", p2.ID))
		require.NoError(t, svc.Like(ctx, "u2", p1.ID))

		before := likes.Lists.Load()
		got, err := svc.BatchLikeStatus(ctx, "u1", []string{p1.ID, p2.ID, "unknown"})
		require.NoError(t, err)
		assert.Equal(t, map[string]bool{p1.ID: false, p2.ID: true, "unknown": false}, got)
		assert.Equal(t, before+1, likes.Lists.Load(), "one bounded query")
	})

	t.Run("anonymous viewer", func(t *testing.T) {
		before := likes.Calls()
		got, err := svc.BatchLikeStatus(ctx, "", []string{"a", "b"})
		require.NoError(t, err)
		assert.Equal(t, map[string]bool{"a": false, "b": false}, got)
		assert.Equal(t, before, likes.Calls())
	})

	t.Run("oversized batch is rejected", func(t *testing.T) {
		ids := make([]string, MaxBatchSize+1)
		for i := range ids {
			ids[i] = fmt.Sprintf("p%d", i)
		}
		_, err := svc.BatchLikeStatus(ctx, "u1", ids)
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeValidation, appErr.Code)
	})
}

func TestChunkIDs(t *testing.T) {
	ids := make([]string, 250)
	for i := range ids {
		ids[i] = fmt.Sprintf("p%d", i)
	}
	chunks := ChunkIDs(ids, MaxBatchSize)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 100)
	assert.Len(t, chunks[2], 50)
	assert.Equal(t, "p249", chunks[2][49])
	assert.Nil(t, ChunkIDs(nil, 10))
}

func TestLikeService_DuplicateCreateSurfacesAsAlreadyLiked(t *testing.T) {
	store := testutil.NewSQLiteStore(t)
	author := testutil.SeedProfile(t, store, "author")
	post := testutil.SeedPost(t, store, author.ID, "hello")
	svc := NewLikeService(store.Posts, racingLikes{Store: store.Likes}, nil)

	assert.ErrorIs(t, svc.Like(context.Background(), "fan", post.ID), models.ErrAlreadyLiked)
}

// racingLikes hides existing edges from reads, as another process's
// concurrent create would, and rejects creates like a unique index.
type racingLikes struct {
	repository.Store[models.Like]
}

func (racingLikes) List(context.Context, repository.Query) ([]*models.Like, error) {
	return nil, nil
}

func (racingLikes) Create(context.Context, *models.Like) error {
	return repository.ErrDuplicate
}

func TestLikeService_UnlikeKeepsEdgeWhenPostReadFails(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewSQLiteStore(t)
	posts := testutil.NewSpyStore(store.Posts)
	svc := NewLikeService(posts, store.Likes, nil)

	author := testutil.SeedProfile(t, store, "author")
	post := testutil.SeedPost(t, store, author.ID, "hello")
	require.NoError(t, svc.Like(ctx, "fan", post.ID))

	posts.GetErr = models.NewInternalError(errors.New("store unavailable"))
	posts.GetErrAfter = posts.Gets.Load()

	err := svc.Unlike(ctx, "fan", post.ID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrNotLiked)

	_, _, err = svc.Toggle(ctx, "fan", post.ID)
	require.Error(t, err)

	liked, _, err := svc.HasLiked(ctx, "fan", post.ID)
	require.NoError(t, err)
	assert.True(t, liked, "a failed unlike leaves the edge in place")

	stored, err := store.Posts.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.LikeCount)
}

func TestLikeService_ToggleReportsWrittenCountWhenReadBackFails(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewSQLiteStore(t)
	posts := testutil.NewSpyStore(store.Posts)
	svc := NewLikeService(posts, store.Likes, nil)

	author := testutil.SeedProfile(t, store, "author")
	post := testutil.SeedPost(t, store, author.ID, "hello")

	// The first Get inside the toggle succeeds; the read-back fails.
	posts.GetErr = errors.New("read timeout")
	posts.GetErrAfter = posts.Gets.Load() + 1

	liked, count, err := svc.Toggle(ctx, "fan", post.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, 1, count)

	has, _, err := svc.HasLiked(ctx, "fan", post.ID)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestLikeService_ToggleChecksLikeStateOnce(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewSQLiteStore(t)
	likes := testutil.NewSpyStore(store.Likes)
	svc := NewLikeService(store.Posts, likes, nil)

	author := testutil.SeedProfile(t, store, "author")
	post := testutil.SeedPost(t, store, author.ID, "hello")

	_, _, err := svc.Toggle(ctx, "fan", post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), likes.Lists.Load())

	_, _, err = svc.Toggle(ctx, "fan", post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), likes.Lists.Load())
}

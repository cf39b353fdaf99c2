package service

import (
	"context"
	"fmt"
	"testing"

	"threadline/internal/models"
	"threadline/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultFeedLimit},
		{-3, 1},
		{1, 1},
		{20, 20},
		{50, 50},
		{51, MaxFeedLimit},
		{1000, MaxFeedLimit},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampLimit(tt.in), "ClampLimit(%d)", tt.in)
	}
}

func TestFeedService_PaginatesWithoutGapsOrDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.SeedProfile(t, f.store, "author")

	var created []string
	for i := 0; i < 5; i++ {
		created = append(created, testutil.SeedPost(t, f.store, author.ID, fmt.Sprintf("post %d", i)).ID)
	}

	var (
		sizes   []int
		hasMore []bool
		seen    []string
		cursor  string
	)
	for {
		page, err := f.feed.GetFeed(ctx, FeedQuery{Cursor: cursor, Limit: 2})
		require.NoError(t, err)
		sizes = append(sizes, len(page.Threads))
		hasMore = append(hasMore, page.HasMore)
		for _, v := range page.Threads {
			seen = append(seen, v.ID)
		}
		if !page.HasMore {
			assert.Empty(t, page.NextCursor)
			break
		}
		cursor = page.NextCursor
	}

	assert.Equal(t, []int{2, 2, 1}, sizes)
	assert.Equal(t, []bool{true, true, false}, hasMore)

	// Newest first.
	want := make([]string, len(created))
	for i, id := range created {
		want[len(created)-1-i] = id
	}
	assert.Equal(t, want, seen)
}

func TestFeedService_ExcludesRepliesAndAnnotates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.SeedProfile(t, f.store, "author")
	viewer := testutil.SeedProfile(t, f.store, "viewer")
	thread := testutil.SeedPost(t, f.store, author.ID, "thread")
	other := testutil.SeedPost(t, f.store, author.ID, "other")

	_, err := f.posts.CreatePost(ctx, CreatePostInput{AuthorID: viewer.ID, Content: "reply", ParentPostID: thread.ID})
	require.NoError(t, err)
	require.NoError(t, f.likes.Like(ctx, viewer.ID, thread.ID))

	page, err := f.feed.GetFeed(ctx, FeedQuery{ViewerID: viewer.ID})
	require.NoError(t, err)
	require.Len(t, page.Threads, 2)

	byID := map[string]*models.PostView{}
	for _, v := range page.Threads {
		byID[v.ID] = v
		require.NotNil(t, v.Author)
		assert.Equal(t, author.ID, v.Author.ID)
	}
	assert.True(t, byID[thread.ID].Liked)
	assert.Equal(t, 1, byID[thread.ID].LikeCount)
	assert.Equal(t, 1, byID[thread.ID].ReplyCount)
	assert.False(t, byID[other.ID].Liked)

	anon, err := f.feed.GetFeed(ctx, FeedQuery{})
	require.NoError(t, err)
	for _, v := range anon.Threads {
		assert.False(t, v.Liked)
	}
}

func TestFeedService_DropsPostsWithUnknownAuthor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.SeedProfile(t, f.store, "author")
	testutil.SeedPost(t, f.store, author.ID, "kept")
	testutil.SeedPost(t, f.store, "deleted-user", "orphan")

	page, err := f.feed.GetFeed(ctx, FeedQuery{})
	require.NoError(t, err)
	require.Len(t, page.Threads, 1)
	assert.Equal(t, "kept", page.Threads[0].Content)
}

func TestFeedService_UnknownCursor(t *testing.T) {
	f := newFixture(t)
	_, err := f.feed.GetFeed(context.Background(), FeedQuery{Cursor: "nope"})

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeValidation, appErr.Code)
}

func TestFeedService_FollowingFeed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	viewer := testutil.SeedProfile(t, f.store, "viewer")
	quiet := testutil.SeedProfile(t, f.store, "quiet")
	loud := testutil.SeedProfile(t, f.store, "loud")
	stranger := testutil.SeedProfile(t, f.store, "stranger")

	t.Run("follows nobody", func(t *testing.T) {
		page, err := f.feed.GetFollowingFeed(ctx, FeedQuery{ViewerID: viewer.ID})
		require.NoError(t, err)
		assert.Zero(t, page.FollowingCount)
		assert.Empty(t, page.Threads)
		assert.NotNil(t, page.Threads)
		assert.False(t, page.HasMore)
	})

	t.Run("followed accounts have not posted", func(t *testing.T) {
		require.NoError(t, f.follows.Follow(ctx, viewer.ID, quiet.ID))
		testutil.SeedPost(t, f.store, stranger.ID, "not followed")

		page, err := f.feed.GetFollowingFeed(ctx, FeedQuery{ViewerID: viewer.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(1), page.FollowingCount)
		assert.Empty(t, page.Threads)
	})

	t.Run("only followed authors", func(t *testing.T) {
		require.NoError(t, f.follows.Follow(ctx, viewer.ID, loud.ID))
		p := testutil.SeedPost(t, f.store, loud.ID, "hi followers")

		page, err := f.feed.GetFollowingFeed(ctx, FeedQuery{ViewerID: viewer.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.FollowingCount)
		require.Len(t, page.Threads, 1)
		assert.Equal(t, p.ID, page.Threads[0].ID)
	})
}

func TestFeedService_Replies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.SeedProfile(t, f.store, "author")
	thread := testutil.SeedPost(t, f.store, author.ID, "thread")

	var want []string
	for i := 0; i < 3; i++ {
		r, err := f.posts.CreatePost(ctx, CreatePostInput{
			AuthorID: author.ID, Content: fmt.Sprintf("reply %d", i), ParentPostID: thread.ID,
		})
		require.NoError(t, err)
		want = append(want, r.ID)
	}

	page, err := f.feed.GetReplies(ctx, thread.ID, FeedQuery{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.True(t, page.HasMore)
	require.Len(t, page.Replies, 2)
	assert.Equal(t, want[0], page.Replies[0].ID, "oldest first")

	rest, err := f.feed.GetReplies(ctx, thread.ID, FeedQuery{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	assert.False(t, rest.HasMore)
	require.Len(t, rest.Replies, 1)
	assert.Equal(t, want[2], rest.Replies[0].ID)

	_, err = f.feed.GetReplies(ctx, "missing", FeedQuery{})
	assert.True(t, models.IsNotFound(err))
}

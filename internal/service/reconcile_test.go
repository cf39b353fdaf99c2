package service

import (
	"context"
	"testing"

	"threadline/internal/repository"
	"threadline/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterReconciler(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.SeedProfile(t, f.store, "author")
	good := testutil.SeedPost(t, f.store, author.ID, "good")
	bad := testutil.SeedPost(t, f.store, author.ID, "bad")

	require.NoError(t, f.likes.Like(ctx, "u1", good.ID))
	require.NoError(t, f.likes.Like(ctx, "u1", bad.ID))
	require.NoError(t, f.likes.Like(ctx, "u2", bad.ID))
	_, err := f.posts.CreatePost(ctx, CreatePostInput{AuthorID: "u1", Content: "r", ParentPostID: bad.ID})
	require.NoError(t, err)

	require.NoError(t, f.store.Posts.Update(ctx, bad.ID, repository.Patch{"like_count": 9, "reply_count": 0}))

	r := NewCounterReconciler(f.store.Posts, f.store.Likes)

	res, err := r.RecountAll(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Scanned, "two threads and one reply")
	assert.Equal(t, 1, res.Repaired)

	stored, err := f.store.Posts.Get(ctx, bad.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.LikeCount)
	assert.Equal(t, 1, stored.ReplyCount)

	changed, err := r.RecountPost(ctx, good.ID)
	require.NoError(t, err)
	assert.False(t, changed)
}

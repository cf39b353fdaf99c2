package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"threadline/internal/config"
	"threadline/internal/middleware"
	"threadline/internal/models"
	"threadline/internal/repository"
	"threadline/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	t     *testing.T
	cfg   *config.Config
	store *repository.InteractionStore
	srv   *Server
	app   *fiber.App
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Env:              "test",
		JWTSecret:        "test-secret-key-12345678901234567890123456789012",
		JWTIssuer:        "threadline-api",
		JWTAudience:      "threadline-client",
		FeatureFlags:     "notify_realtime=on",
		RateLimitEnabled: true,
		RateLimitIdleTTL: time.Hour,
		NotifyWorkers:    2,
		NotifyQueueSize:  64,
	}
	for _, m := range mutate {
		m(cfg)
	}

	store := testutil.NewSQLiteStore(t)
	srv, err := NewServerWithDeps(cfg, store, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	srv.dispatcher.Start(ctx)
	t.Cleanup(func() {
		_ = srv.dispatcher.Stop(context.Background())
		cancel()
	})

	return &testEnv{t: t, cfg: cfg, store: store, srv: srv, app: srv.NewApp()}
}

func (e *testEnv) token(userID string) string {
	e.t.Helper()
	tok, err := middleware.SignToken(e.cfg, userID, time.Hour)
	require.NoError(e.t, err)
	return tok
}

// do sends a request as userID ("" for anonymous) and decodes a JSON
// response into out when out is non-nil.
func (e *testEnv) do(method, path, userID string, body any, out any) *http.Response {
	e.t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+e.token(userID))
	}

	resp, err := e.app.Test(req, 5000)
	require.NoError(e.t, err)
	e.t.Cleanup(func() { _ = resp.Body.Close() })

	if out != nil {
		require.NoError(e.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestHealthChecks(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(http.MethodGet, "/health/live", "", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	resp = env.do(http.MethodGet, "/health/ready", "", nil, &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "disabled", body.Checks["redis"])
	assert.Equal(t, "sqlite", body.Checks["backend"])
}

func TestLikeEndpoints(t *testing.T) {
	env := newTestEnv(t)
	author := testutil.SeedProfile(t, env.store, "author")
	fan := testutil.SeedProfile(t, env.store, "fan")
	post := testutil.SeedPost(t, env.store, author.ID, "hello")
	path := "/api/interactions/" + post.ID + "/like"

	var state LikeState
	resp := env.do(http.MethodGet, path, "", nil, &state)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, LikeState{Liked: false, LikeCount: 0}, state)

	resp = env.do(http.MethodPost, path, "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(http.MethodPost, path, fan.ID, nil, &state)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, LikeState{Liked: true, LikeCount: 1}, state)
	assert.NotEmpty(t, resp.Header.Get(middleware.HeaderRateLimitRemaining))

	env.do(http.MethodGet, path, fan.ID, nil, &state)
	assert.True(t, state.Liked)

	resp = env.do(http.MethodPost, path, fan.ID, nil, &state)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, LikeState{Liked: false, LikeCount: 0}, state)

	var errBody models.ErrorResponse
	resp = env.do(http.MethodPost, "/api/interactions/missing/like", fan.ID, nil, &errBody)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, models.CodeNotFound, errBody.Code)
}

func TestLikeRateLimit(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.RateLimits = "like=2/1m" })
	author := testutil.SeedProfile(t, env.store, "author")
	post := testutil.SeedPost(t, env.store, author.ID, "hello")
	path := "/api/interactions/" + post.ID + "/like"

	for i := 0; i < 2; i++ {
		resp := env.do(http.MethodPost, path, "spammer", nil, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	var errBody models.ErrorResponse
	resp := env.do(http.MethodPost, path, "spammer", nil, &errBody)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "30", resp.Header.Get(fiber.HeaderRetryAfter))
	assert.Equal(t, "2", resp.Header.Get(middleware.HeaderRateLimitLimit))
	assert.Equal(t, "0", resp.Header.Get(middleware.HeaderRateLimitRemaining))
	assert.Equal(t, models.CodeRateLimited, errBody.Code)

	resp = env.do(http.MethodPost, path, "someone-else", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRateLimitDisabled(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.RateLimitEnabled = false
		c.RateLimits = "like=1/1m"
	})
	author := testutil.SeedProfile(t, env.store, "author")
	post := testutil.SeedPost(t, env.store, author.ID, "hello")

	for i := 0; i < 3; i++ {
		resp := env.do(http.MethodPost, "/api/interactions/"+post.ID+"/like", "u1", nil, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, resp.Header.Get(middleware.HeaderRateLimitLimit))
	}
}

func TestFollowEndpoints(t *testing.T) {
	env := newTestEnv(t)
	a := testutil.SeedProfile(t, env.store, "a")
	b := testutil.SeedProfile(t, env.store, "b")
	path := "/api/follows/" + b.ID

	var errBody models.ErrorResponse
	resp := env.do(http.MethodPost, "/api/follows/"+a.ID, a.ID, nil, &errBody)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "SELF_FOLLOW", errBody.Reason)

	var state FollowState
	resp = env.do(http.MethodPost, path, a.ID, nil, &state)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, state.IsFollowing)

	errBody = models.ErrorResponse{}
	resp = env.do(http.MethodPost, path, a.ID, nil, &errBody)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.CodeConflict, errBody.Code)
	assert.Equal(t, "ALREADY_FOLLOWING", errBody.Reason)

	state = FollowState{}
	env.do(http.MethodGet, path, a.ID, nil, &state)
	assert.True(t, state.IsFollowing)
	require.NotNil(t, state.Followers)
	assert.Equal(t, int64(1), *state.Followers)
	assert.Equal(t, int64(0), *state.Following)

	state = FollowState{}
	env.do(http.MethodGet, path, "", nil, &state)
	assert.False(t, state.IsFollowing, "anonymous callers follow nobody")

	state = FollowState{IsFollowing: true}
	resp = env.do(http.MethodDelete, path, a.ID, nil, &state)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, state.IsFollowing)

	errBody = models.ErrorResponse{}
	resp = env.do(http.MethodDelete, path, a.ID, nil, &errBody)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "NOT_FOLLOWING", errBody.Reason)

	resp = env.do(http.MethodPost, "/api/follows/ghost", a.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

type feedBody struct {
	Threads []struct {
		ID     string          `json:"id"`
		Liked  bool            `json:"liked"`
		Author *models.Profile `json:"author"`
	} `json:"threads"`
	NextCursor     string `json:"nextCursor"`
	HasMore        bool   `json:"hasMore"`
	FollowingCount *int64 `json:"followingCount"`
}

func TestFeedPagination(t *testing.T) {
	env := newTestEnv(t)
	author := testutil.SeedProfile(t, env.store, "author")
	for i := 0; i < 5; i++ {
		testutil.SeedPost(t, env.store, author.ID, "post")
	}

	var (
		sizes   []int
		hasMore []bool
		seen    = map[string]bool{}
		cursor  string
	)
	for i := 0; i < 5; i++ {
		var page feedBody
		resp := env.do(http.MethodGet, "/api/feed?limit=2&cursor="+cursor, "", nil, &page)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		sizes = append(sizes, len(page.Threads))
		hasMore = append(hasMore, page.HasMore)
		for _, th := range page.Threads {
			assert.False(t, seen[th.ID], "duplicate %s", th.ID)
			seen[th.ID] = true
			assert.Equal(t, "author", th.Author.Username)
		}
		if !page.HasMore {
			break
		}
		cursor = page.NextCursor
	}

	assert.Equal(t, []int{2, 2, 1}, sizes)
	assert.Equal(t, []bool{true, true, false}, hasMore)
	assert.Len(t, seen, 5)
}

func TestFeedBadQuery(t *testing.T) {
	env := newTestEnv(t)

	var errBody models.ErrorResponse
	resp := env.do(http.MethodGet, "/api/feed?limit=abc", "", nil, &errBody)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Len(t, errBody.Fields, 1)
	assert.Equal(t, "limit", errBody.Fields[0].Field)

	errBody = models.ErrorResponse{}
	resp = env.do(http.MethodGet, "/api/feed?cursor=unknown", "", nil, &errBody)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Len(t, errBody.Fields, 1)
	assert.Equal(t, "cursor", errBody.Fields[0].Field)
}

func TestFollowingFeed(t *testing.T) {
	env := newTestEnv(t)
	viewer := testutil.SeedProfile(t, env.store, "viewer")
	quiet := testutil.SeedProfile(t, env.store, "quiet")

	resp := env.do(http.MethodGet, "/api/feed/following", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var page feedBody
	resp = env.do(http.MethodGet, "/api/feed/following", viewer.ID, nil, &page)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, page.FollowingCount)
	assert.Zero(t, *page.FollowingCount)
	assert.Empty(t, page.Threads)

	env.do(http.MethodPost, "/api/follows/"+quiet.ID, viewer.ID, nil, nil)
	page = feedBody{}
	env.do(http.MethodGet, "/api/feed/following", viewer.ID, nil, &page)
	assert.Equal(t, int64(1), *page.FollowingCount)
	assert.Empty(t, page.Threads)
}

func TestThreadEndpoints(t *testing.T) {
	env := newTestEnv(t)
	op := testutil.SeedProfile(t, env.store, "op")
	replier := testutil.SeedProfile(t, env.store, "replier")

	var errBody models.ErrorResponse
	resp := env.do(http.MethodPost, "/api/threads", op.ID, CreatePostRequest{Content: "  "}, &errBody)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.CodeValidation, errBody.Code)
	require.NotEmpty(t, errBody.Fields)
	assert.Equal(t, "content", errBody.Fields[0].Field)

	resp = env.do(http.MethodPost, "/api/threads", "", CreatePostRequest{Content: "hi"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var thread models.Post
	resp = env.do(http.MethodPost, "/api/threads", op.ID, CreatePostRequest{Content: "first thread"}, &thread)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, op.ID, thread.AuthorID)

	var reply models.Post
	resp = env.do(http.MethodPost, "/api/threads/"+thread.ID+"/replies", replier.ID, CreatePostRequest{Content: "a reply"}, &reply)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, thread.ID, reply.ParentPostID)

	var replies struct {
		Replies []models.PostView `json:"replies"`
		Total   int64             `json:"total"`
		HasMore bool              `json:"hasMore"`
	}
	resp = env.do(http.MethodGet, "/api/threads/"+thread.ID+"/replies", "", nil, &replies)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(1), replies.Total)
	require.Len(t, replies.Replies, 1)
	assert.Equal(t, reply.ID, replies.Replies[0].ID)

	var view models.PostView
	resp = env.do(http.MethodGet, "/api/threads/"+thread.ID, "", nil, &view)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, view.ReplyCount)
	assert.Equal(t, "op", view.Author.Username)

	resp = env.do(http.MethodGet, "/api/threads/missing", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = env.do(http.MethodGet, "/api/threads/missing/replies", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = env.do(http.MethodPost, "/api/threads/missing/replies", replier.ID, CreatePostRequest{Content: "x"}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNotificationInbox(t *testing.T) {
	env := newTestEnv(t)
	author := testutil.SeedProfile(t, env.store, "author")
	fan := testutil.SeedProfile(t, env.store, "fan")
	post := testutil.SeedPost(t, env.store, author.ID, "hello")

	env.do(http.MethodPost, "/api/interactions/"+post.ID+"/like", fan.ID, nil, nil)
	env.do(http.MethodPost, "/api/follows/"+author.ID, fan.ID, nil, nil)

	type inbox struct {
		Notifications []models.Notification `json:"notifications"`
		Unread        int64                 `json:"unread"`
	}
	var page inbox
	require.Eventually(t, func() bool {
		page = inbox{}
		env.do(http.MethodGet, "/api/notifications", author.ID, nil, &page)
		return len(page.Notifications) == 2
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, int64(2), page.Unread)

	kinds := []models.NotificationKind{page.Notifications[0].Kind, page.Notifications[1].Kind}
	assert.ElementsMatch(t, []models.NotificationKind{models.NotificationLike, models.NotificationFollow}, kinds)

	var n models.Notification
	resp := env.do(http.MethodPost, "/api/notifications/"+page.Notifications[0].ID+"/read", author.ID, nil, &n)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, n.Read)

	resp = env.do(http.MethodPost, "/api/notifications/"+page.Notifications[1].ID+"/read", fan.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "someone else's notification")

	page = inbox{}
	env.do(http.MethodGet, "/api/notifications", author.ID, nil, &page)
	assert.Equal(t, int64(1), page.Unread)

	resp = env.do(http.MethodGet, "/api/notifications", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestNotificationsWebSocketWithoutRedis(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(http.MethodGet, "/api/ws/notifications", "u1", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp = env.do(http.MethodGet, "/api/ws/notifications", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	var errBody models.ErrorResponse
	resp := env.do(http.MethodGet, "/api/nope", "", nil, &errBody)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, errBody.Error)
}

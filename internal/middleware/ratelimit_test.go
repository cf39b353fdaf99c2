package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"threadline/internal/models"
	"threadline/internal/ratelimit"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestRateLimitMiddleware(t *testing.T) {
	clock := &stepClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	l := ratelimit.New(map[string]ratelimit.Class{
		ratelimit.ClassLike: {Capacity: 2, Window: time.Minute},
	}, ratelimit.WithClock(clock.Now))

	app := fiber.New()
	app.Post("/like", RateLimit(l, ratelimit.ClassLike), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	do := func(ip string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/like", nil)
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	for i := 0; i < 2; i++ {
		resp := do("1.2.3.4")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "2", resp.Header.Get(HeaderRateLimitLimit))
		assert.Equal(t, strconv.Itoa(1-i), resp.Header.Get(HeaderRateLimitRemaining))
		_ = resp.Body.Close()
	}

	resp := do("1.2.3.4")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "30", resp.Header.Get(fiber.HeaderRetryAfter))
	assert.Equal(t, "0", resp.Header.Get(HeaderRateLimitRemaining))
	reset, err := strconv.ParseInt(resp.Header.Get(HeaderRateLimitReset), 10, 64)
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(30*time.Second).Unix(), reset)

	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	_ = resp.Body.Close()
	assert.Equal(t, models.CodeRateLimited, body.Code)
	assert.Equal(t, 30, body.RetryAfter)

	other := do("5.6.7.8")
	assert.Equal(t, http.StatusOK, other.StatusCode, "identities have separate buckets")
	_ = other.Body.Close()

	clock.Advance(time.Minute)
	again := do("1.2.3.4")
	assert.Equal(t, http.StatusOK, again.StatusCode, "bucket refills after a window")
	_ = again.Body.Close()
}

func TestRateLimitMiddleware_NilLimiter(t *testing.T) {
	app := fiber.New()
	app.Get("/", RateLimit(nil, ratelimit.ClassDefault), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, resp.Header.Get(HeaderRateLimitLimit))
}

func TestResolveIdentity(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		if uid := c.Get("X-Test-User"); uid != "" {
			c.Locals(LocalUserID, uid)
		}
		return c.SendString(ResolveIdentity(c))
	})

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"user wins", map[string]string{"X-Test-User": "u1", "X-Forwarded-For": "1.1.1.1"}, "user:u1"},
		{"first forwarded hop", map[string]string{"X-Forwarded-For": " 9.9.9.9 , 10.0.0.1"}, "ip:9.9.9.9"},
		{"socket address", nil, "ip:0.0.0.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			buf := make([]byte, 64)
			n, _ := resp.Body.Read(buf)
			assert.Equal(t, tt.want, string(buf[:n]))
		})
	}
}

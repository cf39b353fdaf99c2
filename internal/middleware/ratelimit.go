package middleware

import (
	"strconv"
	"strings"

	"threadline/internal/models"
	"threadline/internal/ratelimit"

	"github.com/gofiber/fiber/v2"
)

// Rate limit response headers.
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
)

// RateLimit admits the request against class for the resolved caller. Both
// admitted and denied responses carry the X-RateLimit headers; denials get
// 429 with Retry-After. A nil limiter disables limiting.
func RateLimit(l *ratelimit.Limiter, class string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if l == nil || c.Method() == fiber.MethodOptions {
			return c.Next()
		}

		d := l.Admit(ResolveIdentity(c), class)
		c.Set(HeaderRateLimitLimit, strconv.Itoa(d.Limit))
		c.Set(HeaderRateLimitRemaining, strconv.Itoa(d.Remaining))
		// Round up so a client waiting until Reset never arrives early.
		c.Set(HeaderRateLimitReset, strconv.FormatInt((d.ResetAt.UnixMilli()+999)/1000, 10))

		if !d.Allowed {
			return models.RespondWithError(c, fiber.StatusTooManyRequests, models.NewRateLimitError(d.RetryAfter))
		}
		return c.Next()
	}
}

// ResolveIdentity keys authenticated callers by user id and anonymous ones by
// the first X-Forwarded-For hop, falling back to the socket address.
func ResolveIdentity(c *fiber.Ctx) string {
	if uid := UserID(c); uid != "" {
		return "user:" + uid
	}
	if xff := c.Get(fiber.HeaderXForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return "ip:" + ip
		}
	}
	return "ip:" + c.IP()
}

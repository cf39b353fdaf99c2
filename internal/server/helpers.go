package server

import (
	"log/slog"
	"strconv"

	"threadline/internal/middleware"
	"threadline/internal/models"
	"threadline/internal/observability"
	"threadline/internal/service"

	"github.com/gofiber/fiber/v2"
)

// respondError writes err with the status it maps to. Internal errors are
// logged with their cause, which never reaches the client.
func respondError(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		observability.Logger.ErrorContext(c.UserContext(), "request error",
			slog.String("path", c.Path()), slog.String("error", err.Error()))
	}
	return models.RespondWithError(c, status, err)
}

// feedQuery reads cursor and limit. A limit that is present but not a
// number is a validation error; out-of-range values are clamped.
func feedQuery(c *fiber.Ctx) (service.FeedQuery, error) {
	q := service.FeedQuery{
		Cursor:   c.Query("cursor"),
		ViewerID: middleware.UserID(c),
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, models.NewFieldError("limit", "limit must be an integer")
		}
		q.Limit = max(n, 1)
	}
	return q, nil
}

// pathID returns a non-empty route parameter or a validation error.
func pathID(c *fiber.Ctx, param string) (string, error) {
	id := c.Params(param)
	if id == "" {
		return "", models.NewFieldError(param, param+" is required")
	}
	return id, nil
}

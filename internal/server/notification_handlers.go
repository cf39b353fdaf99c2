package server

import (
	"threadline/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// GetNotifications handles GET /api/notifications
// @Summary Notification inbox
// @Description The caller's notifications, newest first, with the unread count.
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param cursor query string false "ID of the last notification of the previous page"
// @Param limit query int false "Page size (1-50, default 20)"
// @Success 200 {object} service.NotificationPage
// @Failure 401 {object} models.ErrorResponse
// @Router /notifications [get]
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	q, err := feedQuery(c)
	if err != nil {
		return respondError(c, err)
	}
	page, err := s.notificationService.List(c.UserContext(), middleware.UserID(c), q.Cursor, q.Limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// MarkNotificationRead handles POST /api/notifications/:id/read
// @Summary Mark a notification read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 200 {object} models.Notification
// @Failure 404 {object} models.ErrorResponse
// @Router /notifications/{id}/read [post]
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	n, err := s.notificationService.MarkRead(c.UserContext(), middleware.UserID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(n)
}

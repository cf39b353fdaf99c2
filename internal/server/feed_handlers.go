package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetFeed handles GET /api/feed
// @Summary Global feed
// @Description Top-level threads, newest first.
// @Tags feed
// @Produce json
// @Param cursor query string false "ID of the last thread of the previous page"
// @Param limit query int false "Page size (1-50, default 20)"
// @Success 200 {object} service.FeedPage
// @Failure 400 {object} models.ErrorResponse
// @Router /feed [get]
func (s *Server) GetFeed(c *fiber.Ctx) error {
	q, err := feedQuery(c)
	if err != nil {
		return respondError(c, err)
	}
	page, err := s.feedService.GetFeed(c.UserContext(), q)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// GetFollowingFeed handles GET /api/feed/following
// @Summary Following feed
// @Description Threads by accounts the caller follows. followingCount 0 means the caller follows nobody.
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Param cursor query string false "ID of the last thread of the previous page"
// @Param limit query int false "Page size (1-50, default 20)"
// @Success 200 {object} service.FollowingFeedPage
// @Failure 401 {object} models.ErrorResponse
// @Router /feed/following [get]
func (s *Server) GetFollowingFeed(c *fiber.Ctx) error {
	q, err := feedQuery(c)
	if err != nil {
		return respondError(c, err)
	}
	page, err := s.feedService.GetFollowingFeed(c.UserContext(), q)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// GetReplies handles GET /api/threads/:id/replies
// @Summary Thread replies
// @Description Replies of a thread, oldest first, with the total reply count.
// @Tags threads
// @Produce json
// @Param id path string true "Thread ID"
// @Param cursor query string false "ID of the last reply of the previous page"
// @Param limit query int false "Page size (1-50, default 20)"
// @Success 200 {object} service.ReplyPage
// @Failure 404 {object} models.ErrorResponse
// @Router /threads/{id}/replies [get]
func (s *Server) GetReplies(c *fiber.Ctx) error {
	threadID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	q, err := feedQuery(c)
	if err != nil {
		return respondError(c, err)
	}
	page, err := s.feedService.GetReplies(c.UserContext(), threadID, q)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

package server

import (
	"threadline/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// LikeState is the like status of one post for the caller.
type LikeState struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"likeCount"`
}

// GetLikeStatus handles GET /api/interactions/:postId/like
// @Summary Like status
// @Description Whether the caller liked the post, and its like count. Anonymous callers are never liked.
// @Tags interactions
// @Produce json
// @Param postId path string true "Post ID"
// @Success 200 {object} LikeState
// @Failure 404 {object} models.ErrorResponse
// @Router /interactions/{postId}/like [get]
func (s *Server) GetLikeStatus(c *fiber.Ctx) error {
	postID, err := pathID(c, "postId")
	if err != nil {
		return respondError(c, err)
	}

	liked, count, err := s.likeService.Status(c.UserContext(), middleware.UserID(c), postID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(LikeState{Liked: liked, LikeCount: count})
}

// ToggleLike handles POST /api/interactions/:postId/like
// @Summary Toggle like
// @Description Likes the post if the caller has not liked it, otherwise removes the like.
// @Tags interactions
// @Produce json
// @Security BearerAuth
// @Param postId path string true "Post ID"
// @Success 200 {object} LikeState
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Router /interactions/{postId}/like [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	postID, err := pathID(c, "postId")
	if err != nil {
		return respondError(c, err)
	}

	liked, count, err := s.likeService.Toggle(c.UserContext(), middleware.UserID(c), postID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(LikeState{Liked: liked, LikeCount: count})
}

package server

import (
	"threadline/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// FollowState is the follow relationship between the caller and a user.
type FollowState struct {
	IsFollowing bool   `json:"isFollowing"`
	Followers   *int64 `json:"followers,omitempty"`
	Following   *int64 `json:"following,omitempty"`
}

// GetFollowStatus handles GET /api/follows/:userId
// @Summary Follow status
// @Description Whether the caller follows the user, with the user's follower and following counts.
// @Tags follows
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {object} FollowState
// @Router /follows/{userId} [get]
func (s *Server) GetFollowStatus(c *fiber.Ctx) error {
	ctx := c.UserContext()
	targetID, err := pathID(c, "userId")
	if err != nil {
		return respondError(c, err)
	}

	var state FollowState
	if viewer := middleware.UserID(c); viewer != "" {
		if state.IsFollowing, _, err = s.followService.IsFollowing(ctx, viewer, targetID); err != nil {
			return respondError(c, err)
		}
	}

	followers, err := s.followService.FollowerCount(ctx, targetID)
	if err != nil {
		return respondError(c, err)
	}
	following, err := s.followService.FollowingCount(ctx, targetID)
	if err != nil {
		return respondError(c, err)
	}
	state.Followers, state.Following = &followers, &following
	return c.JSON(state)
}

// FollowUser handles POST /api/follows/:userId
// @Summary Follow a user
// @Tags follows
// @Produce json
// @Security BearerAuth
// @Param userId path string true "User ID"
// @Success 200 {object} FollowState
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Router /follows/{userId} [post]
func (s *Server) FollowUser(c *fiber.Ctx) error {
	targetID, err := pathID(c, "userId")
	if err != nil {
		return respondError(c, err)
	}
	if err := s.followService.Follow(c.UserContext(), middleware.UserID(c), targetID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(FollowState{IsFollowing: true})
}

// UnfollowUser handles DELETE /api/follows/:userId
// @Summary Unfollow a user
// @Tags follows
// @Produce json
// @Security BearerAuth
// @Param userId path string true "User ID"
// @Success 200 {object} FollowState
// @Failure 400 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Router /follows/{userId} [delete]
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	targetID, err := pathID(c, "userId")
	if err != nil {
		return respondError(c, err)
	}
	if err := s.followService.Unfollow(c.UserContext(), middleware.UserID(c), targetID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(FollowState{IsFollowing: false})
}

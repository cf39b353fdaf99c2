package server

import (
	"threadline/internal/middleware"
	"threadline/internal/models"
	"threadline/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePostRequest is the body of thread and reply creation.
type CreatePostRequest struct {
	Content       string   `json:"content"`
	Media         []string `json:"media,omitempty"`
	ParentReplyID string   `json:"parentReplyId,omitempty"`
}

// CreateThread handles POST /api/threads
// @Summary Create a thread
// @Tags threads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreatePostRequest true "Thread content"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Router /threads [post]
func (s *Server) CreateThread(c *fiber.Ctx) error {
	return s.createPost(c, "")
}

// CreateReply handles POST /api/threads/:id/replies
// @Summary Reply to a thread
// @Description Creates a reply, bumps the thread's reply count, and notifies the author replied to.
// @Tags threads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Thread ID"
// @Param request body CreatePostRequest true "Reply content"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /threads/{id}/replies [post]
func (s *Server) CreateReply(c *fiber.Ctx) error {
	threadID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	return s.createPost(c, threadID)
}

func (s *Server) createPost(c *fiber.Ctx, threadID string) error {
	var req CreatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}
	if threadID == "" && req.ParentReplyID != "" {
		return respondError(c, models.NewFieldError("parentReplyId", "threads cannot anchor to a reply"))
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		AuthorID:      middleware.UserID(c),
		Content:       req.Content,
		Media:         req.Media,
		ParentPostID:  threadID,
		ParentReplyID: req.ParentReplyID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetThread handles GET /api/threads/:id
// @Summary Get a post
// @Description A thread or reply with its author and the caller's like state.
// @Tags threads
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} models.PostView
// @Failure 404 {object} models.ErrorResponse
// @Router /threads/{id} [get]
func (s *Server) GetThread(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	view, err := s.postService.GetPost(c.UserContext(), id, middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}

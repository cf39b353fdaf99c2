package service

import (
	"context"
	"log/slog"
	"strings"

	"threadline/internal/models"
	"threadline/internal/observability"
	"threadline/internal/repository"
	"threadline/internal/validation"
)

type PostService struct {
	posts    repository.Store[models.Post]
	feed     *FeedService
	notifier Notifier
	locks    *keyLocker
}

type CreatePostInput struct {
	AuthorID      string
	Content       string
	Media         []string
	ParentPostID  string
	ParentReplyID string
}

func NewPostService(posts repository.Store[models.Post], feed *FeedService, notifier Notifier) *PostService {
	return &PostService{
		posts:    posts,
		feed:     feed,
		notifier: orNoop(notifier),
		locks:    newKeyLocker(),
	}
}

// CreatePost creates a thread, or a reply when ParentPostID is set. A reply
// bumps the thread's reply count and notifies the author it answers: the
// anchored reply's author for nested replies, the thread author otherwise.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if errs := validation.ValidatePost(validation.PostInput{
		Content:       in.Content,
		Media:         in.Media,
		ParentPostID:  in.ParentPostID,
		ParentReplyID: in.ParentReplyID,
	}); len(errs) > 0 {
		return nil, models.NewValidationError("Invalid post", errs...)
	}

	var thread, anchor *models.Post
	if in.ParentPostID != "" {
		var err error
		if thread, err = s.posts.Get(ctx, in.ParentPostID); err != nil {
			return nil, err
		}
		if thread.IsReply() {
			return nil, models.NewFieldError("parentPostId", "replies must target a thread, not another reply")
		}
		if in.ParentReplyID != "" {
			anchor, err = s.posts.Get(ctx, in.ParentReplyID)
			if err != nil {
				if models.IsNotFound(err) {
					return nil, models.NewFieldError("parentReplyId", "reply anchor does not exist")
				}
				return nil, err
			}
			if anchor.ParentPostID != thread.ID {
				return nil, models.NewFieldError("parentReplyId", "reply anchor must belong to the same thread")
			}
		}
	}

	now := models.Now()
	post := &models.Post{
		ID:            models.NewID(),
		AuthorID:      in.AuthorID,
		Content:       strings.TrimSpace(in.Content),
		Media:         in.Media,
		ParentPostID:  in.ParentPostID,
		ParentReplyID: in.ParentReplyID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	if thread != nil {
		s.bumpReplyCount(ctx, thread.ID)

		recipient := thread.AuthorID
		if anchor != nil {
			recipient = anchor.AuthorID
		}
		s.notifier.NotifyReply(ctx, recipient, in.AuthorID, post.ID, map[string]any{"threadId": thread.ID})
	}
	return post, nil
}

// bumpReplyCount re-reads the thread under a per-thread lock so replies
// created by this process do not overwrite each other's increments.
func (s *PostService) bumpReplyCount(ctx context.Context, threadID string) {
	defer s.locks.Lock("thread|" + threadID)()

	thread, err := s.posts.Get(ctx, threadID)
	if err != nil {
		observability.CounterSoftFailures.WithLabelValues("reply_count").Inc()
		observability.Logger.WarnContext(ctx, "Thread read failed before reply count update",
			slog.String("post_id", threadID),
			slog.String("error", err.Error()))
		return
	}
	setCounter(ctx, s.posts, threadID, "reply_count", thread.ReplyCount+1)
}

// GetPost returns one post with its author and the viewer's like state.
func (s *PostService) GetPost(ctx context.Context, postID, viewerID string) (*models.PostView, error) {
	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	views, err := s.feed.Assemble(ctx, []*models.Post{post}, viewerID)
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		// Unknown author: still serve the post itself.
		return &models.PostView{Post: *post}, nil
	}
	return views[0], nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"threadline/internal/models"
	"threadline/internal/observability"
	"threadline/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// MaxBatchSize bounds the post ids accepted by one BatchLikeStatus call.
const MaxBatchSize = 100

type LikeService struct {
	posts    repository.Store[models.Post]
	likes    repository.Store[models.Like]
	notifier Notifier
	locks    *keyLocker
}

func NewLikeService(
	posts repository.Store[models.Post],
	likes repository.Store[models.Like],
	notifier Notifier,
) *LikeService {
	return &LikeService{
		posts:    posts,
		likes:    likes,
		notifier: orNoop(notifier),
		locks:    newKeyLocker(),
	}
}

// HasLiked reports whether userID liked postID and returns the edge id.
func (s *LikeService) HasLiked(ctx context.Context, userID, postID string) (bool, string, error) {
	edges, err := s.likes.List(ctx, repository.Query{
		Filters: []repository.Filter{
			repository.Eq("user_id", userID),
			repository.Eq("post_id", postID),
		},
		Limit: 1,
	})
	if err != nil {
		return false, "", err
	}
	if len(edges) == 0 {
		return false, "", nil
	}
	return true, edges[0].ID, nil
}

// Like records userID's like on postID and bumps the post's like count.
func (s *LikeService) Like(ctx context.Context, userID, postID string) error {
	defer s.locks.Lock(lockKey(userID, postID))()

	liked, _, err := s.HasLiked(ctx, userID, postID)
	if err != nil {
		return err
	}
	if liked {
		observability.InteractionToggles.WithLabelValues("like", "conflict").Inc()
		return models.ErrAlreadyLiked
	}
	_, err = s.like(ctx, userID, postID)
	return err
}

// Unlike removes userID's like on postID and decrements the count, never below zero.
func (s *LikeService) Unlike(ctx context.Context, userID, postID string) error {
	defer s.locks.Lock(lockKey(userID, postID))()

	liked, edgeID, err := s.HasLiked(ctx, userID, postID)
	if err != nil {
		return err
	}
	if !liked {
		observability.InteractionToggles.WithLabelValues("like", "conflict").Inc()
		return models.ErrNotLiked
	}
	_, err = s.unlike(ctx, postID, edgeID)
	return err
}

// Toggle likes or unlikes postID and returns the new state with the count
// read back from the store after the mutation.
func (s *LikeService) Toggle(ctx context.Context, userID, postID string) (bool, int, error) {
	span, ctx := observability.NewSpan(ctx, "LikeService.Toggle",
		attribute.String("post.id", postID))
	defer s.locks.Lock(lockKey(userID, postID))()

	liked, edgeID, err := s.HasLiked(ctx, userID, postID)
	if err != nil {
		span.End(err)
		return false, 0, err
	}
	var count int
	if liked {
		count, err = s.unlike(ctx, postID, edgeID)
	} else {
		count, err = s.like(ctx, userID, postID)
	}
	if err != nil {
		span.End(err)
		return false, 0, err
	}

	// The edge has changed; a failed read-back reports the written count.
	if post, err := s.posts.Get(ctx, postID); err == nil {
		count = post.LikeCount
	} else {
		observability.Logger.WarnContext(ctx, "Like count read-back failed after toggle",
			slog.String("post_id", postID), slog.String("error", err.Error()))
	}
	span.End()
	return !liked, max(count, 0), nil
}

// Status returns the viewer's like state and the stored count. An empty
// userID is an anonymous viewer and is never liked.
func (s *LikeService) Status(ctx context.Context, userID, postID string) (bool, int, error) {
	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		return false, 0, err
	}
	if userID == "" {
		return false, max(post.LikeCount, 0), nil
	}
	liked, _, err := s.HasLiked(ctx, userID, postID)
	if err != nil {
		return false, 0, err
	}
	return liked, max(post.LikeCount, 0), nil
}

// BatchLikeStatus maps every id in postIDs to whether userID liked it, using
// one query. Inputs larger than MaxBatchSize are rejected; use ChunkIDs.
func (s *LikeService) BatchLikeStatus(ctx context.Context, userID string, postIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}
	if len(postIDs) > MaxBatchSize {
		return nil, models.NewValidationError("Too many posts in one batch",
			models.FieldError{Field: "postIds", Message: fmt.Sprintf("at most %d ids per call", MaxBatchSize)})
	}
	for _, id := range postIDs {
		out[id] = false
	}
	if userID == "" {
		return out, nil
	}

	edges, err := s.likes.List(ctx, repository.Query{
		Filters: []repository.Filter{
			repository.Eq("user_id", userID),
			repository.In("post_id", postIDs),
		},
	})
	if err != nil {
		return nil, err
	}
	for _, e := range edges {
		out[e.PostID] = true
	}
	return out, nil
}

// ChunkIDs splits ids into consecutive slices of at most size elements.
func ChunkIDs(ids []string, size int) [][]string {
	if size <= 0 {
		size = MaxBatchSize
	}
	var chunks [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

// like creates the edge for a caller known not to have liked postID and
// returns the new like count.
func (s *LikeService) like(ctx context.Context, userID, postID string) (int, error) {
	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		return 0, err
	}

	edge := &models.Like{
		ID:        models.NewID(),
		UserID:    userID,
		PostID:    postID,
		CreatedAt: models.Now(),
	}
	if err := s.likes.Create(ctx, edge); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			observability.InteractionToggles.WithLabelValues("like", "conflict").Inc()
			return 0, models.ErrAlreadyLiked
		}
		return 0, err
	}

	count := post.LikeCount + 1
	setCounter(ctx, s.posts, postID, "like_count", count)
	observability.InteractionToggles.WithLabelValues("like", "liked").Inc()
	s.notifier.NotifyLike(ctx, post.AuthorID, userID, postID, nil)
	return count, nil
}

// unlike deletes edgeID and returns the new like count. The post is read
// before the edge is touched, so a store failure leaves the like in place.
func (s *LikeService) unlike(ctx context.Context, postID, edgeID string) (int, error) {
	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		if !models.IsNotFound(err) {
			return 0, err
		}
		post = nil
	}

	if err := s.likes.Delete(ctx, edgeID); err != nil {
		if models.IsNotFound(err) {
			return 0, models.ErrNotLiked
		}
		return 0, err
	}

	count := 0
	if post != nil {
		count = max(post.LikeCount-1, 0)
		setCounter(ctx, s.posts, postID, "like_count", count)
	}
	observability.InteractionToggles.WithLabelValues("like", "unliked").Inc()
	return count, nil
}

func lockKey(actorID, targetID string) string {
	return actorID + "|" + targetID
}

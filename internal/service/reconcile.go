package service

import (
	"context"
	"log/slog"
	"time"

	"threadline/internal/models"
	"threadline/internal/observability"
	"threadline/internal/repository"
)

// RecountResult summarizes one reconciliation pass.
type RecountResult struct {
	Scanned  int `json:"scanned"`
	Repaired int `json:"repaired"`
}

// CounterReconciler recomputes denormalized post counters from the edges
// and replies they summarize.
type CounterReconciler struct {
	posts repository.Store[models.Post]
	likes repository.Store[models.Like]
}

func NewCounterReconciler(posts repository.Store[models.Post], likes repository.Store[models.Like]) *CounterReconciler {
	return &CounterReconciler{posts: posts, likes: likes}
}

// RecountPost fixes postID's like and reply counts and reports whether
// anything was written.
func (r *CounterReconciler) RecountPost(ctx context.Context, postID string) (bool, error) {
	post, err := r.posts.Get(ctx, postID)
	if err != nil {
		return false, err
	}
	return r.recount(ctx, post)
}

func (r *CounterReconciler) recount(ctx context.Context, post *models.Post) (bool, error) {
	likes, err := r.likes.Count(ctx, repository.Eq("post_id", post.ID))
	if err != nil {
		return false, err
	}
	replies, err := r.posts.Count(ctx, repository.Eq("parent_post_id", post.ID))
	if err != nil {
		return false, err
	}

	patch := repository.Patch{}
	if int64(post.LikeCount) != likes {
		patch["like_count"] = int(likes)
		observability.CounterRepairs.WithLabelValues("like_count").Inc()
	}
	if int64(post.ReplyCount) != replies {
		patch["reply_count"] = int(replies)
		observability.CounterRepairs.WithLabelValues("reply_count").Inc()
	}
	if len(patch) == 0 {
		return false, nil
	}

	observability.Logger.InfoContext(ctx, "Repairing post counters",
		slog.String("post_id", post.ID),
		slog.Int("like_count", post.LikeCount), slog.Int64("likes", likes),
		slog.Int("reply_count", post.ReplyCount), slog.Int64("replies", replies))
	if err := r.posts.Update(ctx, post.ID, patch); err != nil {
		return false, err
	}
	return true, nil
}

// RecountAll walks every post, oldest first, batchSize at a time.
func (r *CounterReconciler) RecountAll(ctx context.Context, batchSize int) (RecountResult, error) {
	if batchSize <= 0 {
		batchSize = 200
	}

	var (
		res   RecountResult
		after string
	)
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		posts, err := r.posts.List(ctx, repository.Query{Ascending: true, Limit: batchSize, After: after})
		if err != nil {
			return res, err
		}
		for _, p := range posts {
			changed, err := r.recount(ctx, p)
			if err != nil {
				return res, err
			}
			res.Scanned++
			if changed {
				res.Repaired++
			}
		}
		if len(posts) < batchSize {
			return res, nil
		}
		after = posts[len(posts)-1].ID
	}
}

// Start runs RecountAll every interval until ctx is done.
func (r *CounterReconciler) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				res, err := r.RecountAll(ctx, 0)
				if err != nil {
					observability.Logger.ErrorContext(ctx, "Counter reconciliation failed", slog.String("error", err.Error()))
					continue
				}
				observability.Logger.InfoContext(ctx, "Counter reconciliation finished",
					slog.Int("scanned", res.Scanned), slog.Int("repaired", res.Repaired))
			}
		}
	}()
}

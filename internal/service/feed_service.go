package service

import (
	"context"
	"log/slog"

	"threadline/internal/models"
	"threadline/internal/observability"
	"threadline/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultFeedLimit = 20
	MaxFeedLimit     = 50
)

// ProfileSource resolves author profiles by id in one call.
type ProfileSource interface {
	GetMany(ctx context.Context, ids []string) (map[string]*models.Profile, error)
}

// storeProfiles is a ProfileSource that always reads the store.
type storeProfiles struct {
	store repository.Store[models.Profile]
}

func (p storeProfiles) GetMany(ctx context.Context, ids []string) (map[string]*models.Profile, error) {
	out := make(map[string]*models.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	profiles, err := p.store.List(ctx, repository.Query{
		Filters: []repository.Filter{repository.In("id", ids)},
	})
	if err != nil {
		return nil, err
	}
	for _, pr := range profiles {
		out[pr.ID] = pr
	}
	return out, nil
}

// FeedQuery selects one page. Cursor is the id of the last item of the
// previous page; ViewerID is empty for anonymous callers.
type FeedQuery struct {
	Cursor   string
	Limit    int
	ViewerID string
}

type FeedPage struct {
	Threads    []*models.PostView `json:"threads"`
	NextCursor string             `json:"nextCursor,omitempty"`
	HasMore    bool               `json:"hasMore"`
}

// FollowingFeedPage is a FeedPage for the accounts the viewer follows.
// FollowingCount 0 means the viewer follows nobody, as opposed to followed
// accounts that have not posted.
type FollowingFeedPage struct {
	FeedPage
	FollowingCount int64 `json:"followingCount"`
}

type ReplyPage struct {
	Replies    []*models.PostView `json:"replies"`
	NextCursor string             `json:"nextCursor,omitempty"`
	HasMore    bool               `json:"hasMore"`
	Total      int64              `json:"total"`
}

type FeedService struct {
	posts    repository.Store[models.Post]
	profiles ProfileSource
	likes    *LikeService
	follows  *FollowService
}

// NewFeedService builds the feed assembler. A nil profiles source reads
// authors straight from profileStore.
func NewFeedService(
	posts repository.Store[models.Post],
	profileStore repository.Store[models.Profile],
	profiles ProfileSource,
	likes *LikeService,
	follows *FollowService,
) *FeedService {
	if profiles == nil {
		profiles = storeProfiles{store: profileStore}
	}
	return &FeedService{
		posts:    posts,
		profiles: profiles,
		likes:    likes,
		follows:  follows,
	}
}

// ClampLimit applies the default and bounds of a page size.
func ClampLimit(limit int) int {
	switch {
	case limit == 0:
		return DefaultFeedLimit
	case limit < 1:
		return 1
	case limit > MaxFeedLimit:
		return MaxFeedLimit
	default:
		return limit
	}
}

// GetFeed returns top-level threads, newest first.
func (s *FeedService) GetFeed(ctx context.Context, q FeedQuery) (*FeedPage, error) {
	span, ctx := observability.NewSpan(ctx, "FeedService.GetFeed")
	page, err := s.page(ctx, q, []repository.Filter{repository.Eq("parent_post_id", "")}, false)
	span.End(err)
	return page, err
}

// GetFollowingFeed returns threads by the accounts the viewer follows.
func (s *FeedService) GetFollowingFeed(ctx context.Context, q FeedQuery) (*FollowingFeedPage, error) {
	span, ctx := observability.NewSpan(ctx, "FeedService.GetFollowingFeed")

	ids, err := s.follows.FollowingIDs(ctx, q.ViewerID, FollowingFeedSourceLimit)
	if err != nil {
		span.End(err)
		return nil, err
	}
	if len(ids) == 0 {
		span.End()
		return &FollowingFeedPage{FeedPage: FeedPage{Threads: []*models.PostView{}}}, nil
	}

	count := int64(len(ids))
	if len(ids) >= FollowingFeedSourceLimit {
		if count, err = s.follows.FollowingCount(ctx, q.ViewerID); err != nil {
			span.End(err)
			return nil, err
		}
	}

	page, err := s.page(ctx, q, []repository.Filter{
		repository.Eq("parent_post_id", ""),
		repository.In("author_id", ids),
	}, false)
	if err != nil {
		span.End(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int64("feed.following_count", count))
	span.End()
	return &FollowingFeedPage{FeedPage: *page, FollowingCount: count}, nil
}

// GetReplies returns the replies of threadID, oldest first.
func (s *FeedService) GetReplies(ctx context.Context, threadID string, q FeedQuery) (*ReplyPage, error) {
	span, ctx := observability.NewSpan(ctx, "FeedService.GetReplies",
		attribute.String("thread.id", threadID))

	if _, err := s.posts.Get(ctx, threadID); err != nil {
		span.End(err)
		return nil, err
	}

	filter := repository.Eq("parent_post_id", threadID)
	page, err := s.page(ctx, q, []repository.Filter{filter}, true)
	if err != nil {
		span.End(err)
		return nil, err
	}
	total, err := s.posts.Count(ctx, filter)
	if err != nil {
		span.End(err)
		return nil, err
	}
	span.End()
	return &ReplyPage{
		Replies:    page.Threads,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
		Total:      total,
	}, nil
}

func (s *FeedService) page(ctx context.Context, q FeedQuery, filters []repository.Filter, ascending bool) (*FeedPage, error) {
	limit := ClampLimit(q.Limit)

	posts, err := s.posts.List(ctx, repository.Query{
		Filters:   filters,
		Ascending: ascending,
		Limit:     limit + 1,
		After:     q.Cursor,
	})
	if err != nil {
		return nil, err
	}

	page := &FeedPage{}
	if len(posts) > limit {
		page.HasMore = true
		posts = posts[:limit]
	}
	// The cursor follows the last row read, even if its author is dropped below.
	if page.HasMore {
		page.NextCursor = posts[len(posts)-1].ID
	}

	page.Threads, err = s.Assemble(ctx, posts, q.ViewerID)
	if err != nil {
		return nil, err
	}
	return page, nil
}

// Assemble joins posts with their authors and the viewer's like state.
// Posts whose author cannot be resolved are dropped.
func (s *FeedService) Assemble(ctx context.Context, posts []*models.Post, viewerID string) ([]*models.PostView, error) {
	views := make([]*models.PostView, 0, len(posts))
	if len(posts) == 0 {
		return views, nil
	}

	authorIDs := make([]string, 0, len(posts))
	for _, p := range posts {
		authorIDs = append(authorIDs, p.AuthorID)
	}
	authors, err := s.profiles.GetMany(ctx, authorIDs)
	if err != nil {
		return nil, err
	}

	for _, p := range posts {
		author, ok := authors[p.AuthorID]
		if !ok {
			observability.FeedItemsDropped.WithLabelValues("missing_author").Inc()
			observability.Logger.WarnContext(ctx, "Dropping feed item with unknown author",
				slog.String("post_id", p.ID), slog.String("author_id", p.AuthorID))
			continue
		}
		views = append(views, &models.PostView{Post: *p, Author: author})
	}

	if viewerID == "" || len(views) == 0 {
		return views, nil
	}

	ids := make([]string, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}
	liked := make(map[string]bool, len(ids))
	for _, chunk := range ChunkIDs(ids, MaxBatchSize) {
		status, err := s.likes.BatchLikeStatus(ctx, viewerID, chunk)
		if err != nil {
			return nil, err
		}
		for id, v := range status {
			liked[id] = v
		}
	}
	for _, v := range views {
		v.Liked = liked[v.ID]
	}
	return views, nil
}

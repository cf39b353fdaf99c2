package service

import (
	"context"
	"errors"

	"threadline/internal/models"
	"threadline/internal/observability"
	"threadline/internal/repository"
)

// FollowingFeedSourceLimit bounds the followed accounts a personalized feed draws from.
const FollowingFeedSourceLimit = 100

// FollowService manages follow edges. Follower and following counts are
// computed with count queries; profiles carry no stored counters.
type FollowService struct {
	follows  repository.Store[models.Follow]
	profiles repository.Store[models.Profile]
	notifier Notifier
	locks    *keyLocker
}

func NewFollowService(
	follows repository.Store[models.Follow],
	profiles repository.Store[models.Profile],
	notifier Notifier,
) *FollowService {
	return &FollowService{
		follows:  follows,
		profiles: profiles,
		notifier: orNoop(notifier),
		locks:    newKeyLocker(),
	}
}

// IsFollowing reports whether followerID follows targetID and returns the edge id.
func (s *FollowService) IsFollowing(ctx context.Context, followerID, targetID string) (bool, string, error) {
	edges, err := s.follows.List(ctx, repository.Query{
		Filters: []repository.Filter{
			repository.Eq("follower_id", followerID),
			repository.Eq("following_id", targetID),
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

func (s *FollowService) Follow(ctx context.Context, followerID, targetID string) error {
	if followerID == targetID {
		return models.ErrSelfFollow
	}
	defer s.locks.Lock(lockKey(followerID, targetID))()
	return s.follow(ctx, followerID, targetID)
}

func (s *FollowService) Unfollow(ctx context.Context, followerID, targetID string) error {
	defer s.locks.Lock(lockKey(followerID, targetID))()
	return s.unfollow(ctx, followerID, targetID)
}

// Toggle follows or unfollows targetID and returns the new state.
func (s *FollowService) Toggle(ctx context.Context, followerID, targetID string) (bool, error) {
	if followerID == targetID {
		return false, models.ErrSelfFollow
	}
	defer s.locks.Lock(lockKey(followerID, targetID))()

	following, _, err := s.IsFollowing(ctx, followerID, targetID)
	if err != nil {
		return false, err
	}
	if following {
		return false, s.unfollow(ctx, followerID, targetID)
	}
	if err := s.follow(ctx, followerID, targetID); err != nil {
		return false, err
	}
	return true, nil
}

// FollowerCount counts the accounts following userID.
func (s *FollowService) FollowerCount(ctx context.Context, userID string) (int64, error) {
	return s.follows.Count(ctx, repository.Eq("following_id", userID))
}

// FollowingCount counts the accounts userID follows.
func (s *FollowService) FollowingCount(ctx context.Context, userID string) (int64, error) {
	return s.follows.Count(ctx, repository.Eq("follower_id", userID))
}

// FollowingIDs returns up to limit accounts userID follows, most recently followed first.
func (s *FollowService) FollowingIDs(ctx context.Context, userID string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = FollowingFeedSourceLimit
	}
	edges, err := s.follows.List(ctx, repository.Query{
		Filters: []repository.Filter{repository.Eq("follower_id", userID)},
		Limit:   limit,
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.FollowingID)
	}
	return ids, nil
}

func (s *FollowService) follow(ctx context.Context, followerID, targetID string) error {
	following, _, err := s.IsFollowing(ctx, followerID, targetID)
	if err != nil {
		return err
	}
	if following {
		observability.InteractionToggles.WithLabelValues("follow", "conflict").Inc()
		return models.ErrAlreadyFollowing
	}

	if _, err := s.profiles.Get(ctx, targetID); err != nil {
		return err
	}

	edge := &models.Follow{
		ID:          models.NewID(),
		FollowerID:  followerID,
		FollowingID: targetID,
		CreatedAt:   models.Now(),
	}
	if err := s.follows.Create(ctx, edge); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			observability.InteractionToggles.WithLabelValues("follow", "conflict").Inc()
			return models.ErrAlreadyFollowing
		}
		return err
	}

	observability.InteractionToggles.WithLabelValues("follow", "followed").Inc()
	s.notifier.NotifyFollow(ctx, targetID, followerID, followerID, nil)
	return nil
}

func (s *FollowService) unfollow(ctx context.Context, followerID, targetID string) error {
	following, edgeID, err := s.IsFollowing(ctx, followerID, targetID)
	if err != nil {
		return err
	}
	if !following {
		observability.InteractionToggles.WithLabelValues("follow", "conflict").Inc()
		return models.ErrNotFollowing
	}
	if err := s.follows.Delete(ctx, edgeID); err != nil {
		if models.IsNotFound(err) {
			return models.ErrNotFollowing
		}
		return err
	}
	observability.InteractionToggles.WithLabelValues("follow", "unfollowed").Inc()
	return nil
}

// Package seed populates a store with demo profiles, threads and interactions.
// It is intended for development and testing only.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"threadline/internal/models"
	"threadline/internal/observability"
	"threadline/internal/repository"
	"threadline/internal/service"

	"github.com/brianvoe/gofakeit/v6"
)

// Options configuration for the seeder
type Options struct {
	Users          int
	Posts          int
	RepliesPerPost int
	LikesPerPost   int
	FollowsPerUser int
	// Seed makes the generated data reproducible; 0 picks a random seed.
	Seed int64
}

// Result counts what a run created.
type Result struct {
	Profiles int `json:"profiles"`
	Threads  int `json:"threads"`
	Replies  int `json:"replies"`
	Likes    int `json:"likes"`
	Follows  int `json:"follows"`
}

func (o Options) withDefaults() Options {
	if o.Users <= 0 {
		o.Users = 20
	}
	if o.Posts < 0 {
		o.Posts = 0
	}
	if o.RepliesPerPost < 0 {
		o.RepliesPerPost = 0
	}
	if o.LikesPerPost > o.Users {
		o.LikesPerPost = o.Users
	}
	if o.FollowsPerUser >= o.Users {
		o.FollowsPerUser = o.Users - 1
	}
	return o
}

// Seeder writes through the services so counters and edges stay consistent.
type Seeder struct {
	store   *repository.InteractionStore
	faker   *gofakeit.Faker
	likes   *service.LikeService
	follows *service.FollowService
	posts   *service.PostService
}

func NewSeeder(store *repository.InteractionStore, seed int64) *Seeder {
	likes := service.NewLikeService(store.Posts, store.Likes, nil)
	follows := service.NewFollowService(store.Follows, store.Profiles, nil)
	feed := service.NewFeedService(store.Posts, store.Profiles, nil, likes, follows)
	return &Seeder{
		store:   store,
		faker:   gofakeit.New(seed),
		likes:   likes,
		follows: follows,
		posts:   service.NewPostService(store.Posts, feed, nil),
	}
}

// Run seeds store according to opts.
func Run(ctx context.Context, store *repository.InteractionStore, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	return NewSeeder(store, opts.Seed).Run(ctx, opts)
}

func (s *Seeder) Run(ctx context.Context, opts Options) (*Result, error) {
	res := &Result{}

	profiles, err := s.SeedProfiles(ctx, opts.Users)
	if err != nil {
		return res, err
	}
	res.Profiles = len(profiles)

	if res.Follows, err = s.SeedFollows(ctx, profiles, opts.FollowsPerUser); err != nil {
		return res, err
	}

	for i := 0; i < opts.Posts; i++ {
		author := profiles[s.faker.Number(0, len(profiles)-1)]
		thread, err := s.posts.CreatePost(ctx, service.CreatePostInput{
			AuthorID: author.ID,
			Content:  s.content(),
		})
		if err != nil {
			return res, fmt.Errorf("create thread: %w", err)
		}
		res.Threads++

		for j := 0; j < opts.RepliesPerPost; j++ {
			replier := profiles[s.faker.Number(0, len(profiles)-1)]
			if _, err := s.posts.CreatePost(ctx, service.CreatePostInput{
				AuthorID:     replier.ID,
				Content:      s.content(),
				ParentPostID: thread.ID,
			}); err != nil {
				return res, fmt.Errorf("create reply: %w", err)
			}
			res.Replies++
		}

		n, err := s.SeedLikes(ctx, thread.ID, profiles, opts.LikesPerPost)
		if err != nil {
			return res, err
		}
		res.Likes += n
	}

	observability.Logger.InfoContext(ctx, "Seeding complete",
		slog.Int("profiles", res.Profiles),
		slog.Int("threads", res.Threads),
		slog.Int("replies", res.Replies),
		slog.Int("likes", res.Likes),
		slog.Int("follows", res.Follows))
	return res, nil
}

// SeedProfiles creates n profiles with unique usernames.
func (s *Seeder) SeedProfiles(ctx context.Context, n int) ([]*models.Profile, error) {
	out := make([]*models.Profile, 0, n)
	for i := 0; i < n; i++ {
		p := &models.Profile{
			ID:          models.NewID(),
			Username:    fmt.Sprintf("%s_%d", strings.ToLower(s.faker.Username()), i),
			DisplayName: s.faker.Name(),
			AvatarURL:   s.faker.ImageURL(128, 128),
			CreatedAt:   models.Now(),
		}
		if err := s.store.Profiles.Create(ctx, p); err != nil {
			return nil, fmt.Errorf("create profile: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}

// SeedFollows has every profile follow up to perUser others.
func (s *Seeder) SeedFollows(ctx context.Context, profiles []*models.Profile, perUser int) (int, error) {
	created := 0
	for _, p := range profiles {
		followed := 0
		for _, target := range s.pick(profiles, perUser+1) {
			if followed == perUser {
				break
			}
			if target.ID == p.ID {
				continue
			}
			if err := s.follows.Follow(ctx, p.ID, target.ID); err != nil {
				if errors.Is(err, models.ErrAlreadyFollowing) {
					continue
				}
				return created, fmt.Errorf("follow: %w", err)
			}
			followed++
			created++
		}
	}
	return created, nil
}

// SeedLikes has n distinct profiles like postID.
func (s *Seeder) SeedLikes(ctx context.Context, postID string, profiles []*models.Profile, n int) (int, error) {
	created := 0
	for _, p := range s.pick(profiles, n) {
		if err := s.likes.Like(ctx, p.ID, postID); err != nil {
			if errors.Is(err, models.ErrAlreadyLiked) {
				continue
			}
			return created, fmt.Errorf("like: %w", err)
		}
		created++
	}
	return created, nil
}

// pick returns up to n distinct profiles in random order.
func (s *Seeder) pick(profiles []*models.Profile, n int) []*models.Profile {
	if n <= 0 {
		return nil
	}
	shuffled := make([]*models.Profile, len(profiles))
	copy(shuffled, profiles)
	s.faker.ShuffleAnySlice(shuffled)
	if n > len(shuffled) {
		n = len(shuffled)
	}
	return shuffled[:n]
}

func (s *Seeder) content() string {
	return s.faker.Sentence(s.faker.Number(4, 18))
}

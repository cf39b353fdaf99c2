// Package testutil provides shared test doubles and fixtures for threadline tests.
package testutil

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"threadline/internal/database"
	"threadline/internal/models"
	"threadline/internal/repository"

	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB opens a migrated in-memory sqlite database for one test.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every connection to ":memory:" is a separate database.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// NewSQLiteStore returns an interaction store over NewSQLiteDB.
func NewSQLiteStore(t *testing.T) *repository.InteractionStore {
	t.Helper()
	return repository.NewGormStore(NewSQLiteDB(t))
}

// NewBoltStore returns an interaction store over a bbolt file in t.TempDir().
func NewBoltStore(t *testing.T) *repository.InteractionStore {
	t.Helper()

	db, err := bolt.Open(filepath.Join(t.TempDir(), "threadline.db"), 0o600, &bolt.Options{Timeout: time.Second})
	require.NoError(t, err)
	store, err := repository.NewBoltStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return store
}

// SeedProfile creates a profile with the given username.
func SeedProfile(t *testing.T, store *repository.InteractionStore, username string) *models.Profile {
	t.Helper()

	p := &models.Profile{
		ID:          models.NewID(),
		Username:    username,
		DisplayName: username,
		CreatedAt:   models.Now(),
	}
	require.NoError(t, store.Profiles.Create(context.Background(), p))
	return p
}

// SeedPost creates a top-level post authored by authorID. Successive calls
// get strictly increasing timestamps.
func SeedPost(t *testing.T, store *repository.InteractionStore, authorID, content string) *models.Post {
	t.Helper()

	now := nextTick()
	p := &models.Post{
		ID:        models.NewID(),
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, store.Posts.Create(context.Background(), p))
	return p
}

var (
	tickMu sync.Mutex
	last   time.Time
)

func nextTick() time.Time {
	tickMu.Lock()
	defer tickMu.Unlock()
	now := models.Now()
	if !now.After(last) {
		now = last.Add(time.Millisecond)
	}
	last = now
	return now
}

// SpyStore wraps a Store and counts calls. Setting UpdateErr makes every
// Update fail with that error. Setting GetErr makes every Get after the
// first GetErrAfter calls fail.
type SpyStore[T models.Document] struct {
	repository.Store[T]

	Gets    atomic.Int64
	Lists   atomic.Int64
	Counts  atomic.Int64
	Creates atomic.Int64
	Updates atomic.Int64
	Deletes atomic.Int64

	UpdateErr   error
	GetErr      error
	GetErrAfter int64
}

// NewSpyStore wraps inner.
func NewSpyStore[T models.Document](inner repository.Store[T]) *SpyStore[T] {
	return &SpyStore[T]{Store: inner}
}

func (s *SpyStore[T]) Get(ctx context.Context, id string) (*T, error) {
	if n := s.Gets.Add(1); s.GetErr != nil && n > s.GetErrAfter {
		return nil, s.GetErr
	}
	return s.Store.Get(ctx, id)
}

func (s *SpyStore[T]) List(ctx context.Context, q repository.Query) ([]*T, error) {
	s.Lists.Add(1)
	return s.Store.List(ctx, q)
}

func (s *SpyStore[T]) Count(ctx context.Context, filters ...repository.Filter) (int64, error) {
	s.Counts.Add(1)
	return s.Store.Count(ctx, filters...)
}

func (s *SpyStore[T]) Create(ctx context.Context, doc *T) error {
	s.Creates.Add(1)
	return s.Store.Create(ctx, doc)
}

func (s *SpyStore[T]) Update(ctx context.Context, id string, patch repository.Patch) error {
	s.Updates.Add(1)
	if s.UpdateErr != nil {
		return s.UpdateErr
	}
	return s.Store.Update(ctx, id, patch)
}

func (s *SpyStore[T]) Delete(ctx context.Context, id string) error {
	s.Deletes.Add(1)
	return s.Store.Delete(ctx, id)
}

// Calls returns the total number of store calls.
func (s *SpyStore[T]) Calls() int64 {
	return s.Gets.Load() + s.Lists.Load() + s.Counts.Load() + s.Creates.Load() + s.Updates.Load() + s.Deletes.Load()
}

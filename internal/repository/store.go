// Package repository implements the document store the interaction engine
// runs on: get/list/count/create/update/delete by id with equality filters
// and created_at ordering, over gorm, MongoDB or bbolt.
package repository

import (
	"context"
	"errors"

	"threadline/internal/models"
)

// ErrDuplicate is returned by Create when a unique key already exists.
var ErrDuplicate = errors.New("duplicate document")

// Op is a filter operator.
type Op int

const (
	OpEq Op = iota
	OpIn
)

// Filter restricts a query to documents whose Field matches Value.
// Field names are storage names (snake_case); "id" addresses the primary key.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Eq matches documents whose field equals v.
func Eq(field string, v any) Filter {
	return Filter{Field: field, Op: OpEq, Value: v}
}

// In matches documents whose field is one of values. An empty list matches nothing.
func In(field string, values []string) Filter {
	return Filter{Field: field, Op: OpIn, Value: values}
}

// Query describes a list request. Results are ordered by created_at then id,
// newest first unless Ascending is set. After is the id of the last document
// of the previous page; only documents strictly after it in that order are returned.
type Query struct {
	Filters   []Filter
	Ascending bool
	Limit     int
	After     string
}

// Patch maps storage field names to new values.
type Patch map[string]any

// Store is the contract every backend implements for one collection.
type Store[T models.Document] interface {
	Get(ctx context.Context, id string) (*T, error)
	List(ctx context.Context, q Query) ([]*T, error)
	Count(ctx context.Context, filters ...Filter) (int64, error)
	Create(ctx context.Context, doc *T) error
	Update(ctx context.Context, id string, patch Patch) error
	Delete(ctx context.Context, id string) error
}

// InteractionStore groups the collections the engine reads and writes.
type InteractionStore struct {
	Posts         Store[models.Post]
	Likes         Store[models.Like]
	Follows       Store[models.Follow]
	Profiles      Store[models.Profile]
	Notifications Store[models.Notification]

	backend string
	ping    func(ctx context.Context) error
	close   func(ctx context.Context) error
}

// Backend names the storage engine behind the store.
func (s *InteractionStore) Backend() string { return s.backend }

// Ping checks that the backing store is reachable.
func (s *InteractionStore) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close releases the backing connection.
func (s *InteractionStore) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// Collection names shared by every backend.
const (
	collectionPosts         = "posts"
	collectionLikes         = "likes"
	collectionFollows       = "follows"
	collectionProfiles      = "profiles"
	collectionNotifications = "notifications"
)

func cursorNotFound() error {
	return models.NewFieldError("cursor", "cursor does not reference an existing item")
}

// afterCursor reports whether a document at (t, id) sorts strictly after the
// cursor document in the requested direction.
func afterCursor(ascending bool, cur models.Document, doc models.Document) bool {
	ct, dt := cur.CreatedTime(), doc.CreatedTime()
	if ascending {
		return dt.After(ct) || (dt.Equal(ct) && doc.DocID() > cur.DocID())
	}
	return dt.Before(ct) || (dt.Equal(ct) && doc.DocID() < cur.DocID())
}

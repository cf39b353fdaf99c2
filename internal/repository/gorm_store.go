package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"threadline/internal/models"
	"threadline/internal/observability"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const pgUniqueViolation = "23505"

type gormStore[T models.Document] struct {
	db       *gorm.DB
	resource string
	log      *observability.RepoLogger
}

// NewGormCollection returns a Store for T backed by the table gorm maps T to.
func NewGormCollection[T models.Document](db *gorm.DB, resource string) Store[T] {
	return &gormStore[T]{
		db:       db,
		resource: resource,
		log:      observability.NewRepoLogger(resource),
	}
}

// NewGormStore builds the interaction store on a postgres or sqlite connection.
func NewGormStore(db *gorm.DB) *InteractionStore {
	return &InteractionStore{
		Posts:         NewGormCollection[models.Post](db, "post"),
		Likes:         NewGormCollection[models.Like](db, "like"),
		Follows:       NewGormCollection[models.Follow](db, "follow"),
		Profiles:      NewGormCollection[models.Profile](db, "profile"),
		Notifications: NewGormCollection[models.Notification](db, "notification"),
		backend:       db.Dialector.Name(),
		ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		close: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}
}

func (s *gormStore[T]) track(op string) func() {
	return observability.TrackQuery("gorm", op, s.resource)
}

func (s *gormStore[T]) fail(ctx context.Context, op string, err error) error {
	s.log.LogError(ctx, err, op)
	return models.NewInternalError(err)
}

func (s *gormStore[T]) Get(ctx context.Context, id string) (*T, error) {
	defer s.track("get")()

	var doc T
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError(s.resource, id)
		}
		return nil, s.fail(ctx, "get", err)
	}
	return &doc, nil
}

func (s *gormStore[T]) List(ctx context.Context, q Query) ([]*T, error) {
	defer s.track("list")()

	tx := applyFilters(s.db.WithContext(ctx).Model(new(T)), q.Filters)

	if q.After != "" {
		var cur T
		if err := s.db.WithContext(ctx).Where("id = ?", q.After).Take(&cur).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, cursorNotFound()
			}
			return nil, s.fail(ctx, "list", err)
		}
		cmp := "<"
		if q.Ascending {
			cmp = ">"
		}
		t := cur.CreatedTime()
		tx = tx.Where(fmt.Sprintf("created_at %s ? OR (created_at = ? AND id %s ?)", cmp, cmp), t, t, cur.DocID())
	}

	tx = tx.Order(clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Name: "created_at"}, Desc: !q.Ascending},
		{Column: clause.Column{Name: "id"}, Desc: !q.Ascending},
	}})
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var docs []*T
	if err := tx.Find(&docs).Error; err != nil {
		return nil, s.fail(ctx, "list", err)
	}
	return docs, nil
}

func (s *gormStore[T]) Count(ctx context.Context, filters ...Filter) (int64, error) {
	defer s.track("count")()

	var n int64
	if err := applyFilters(s.db.WithContext(ctx).Model(new(T)), filters).Count(&n).Error; err != nil {
		return 0, s.fail(ctx, "count", err)
	}
	return n, nil
}

func (s *gormStore[T]) Create(ctx context.Context, doc *T) error {
	defer s.track("create")()

	if err := s.db.WithContext(ctx).Create(doc).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return s.fail(ctx, "create", err)
	}
	return nil
}

func (s *gormStore[T]) Update(ctx context.Context, id string, patch Patch) error {
	defer s.track("update")()

	res := s.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Updates(map[string]any(patch))
	if res.Error != nil {
		return s.fail(ctx, "update", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError(s.resource, id)
	}
	return nil
}

func (s *gormStore[T]) Delete(ctx context.Context, id string) error {
	defer s.track("delete")()

	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(new(T))
	if res.Error != nil {
		return s.fail(ctx, "delete", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError(s.resource, id)
	}
	return nil
}

func applyFilters(tx *gorm.DB, filters []Filter) *gorm.DB {
	for _, f := range filters {
		col := clause.Column{Name: f.Field}
		switch f.Op {
		case OpIn:
			values, _ := f.Value.([]string)
			in := make([]any, len(values))
			for i, v := range values {
				in[i] = v
			}
			tx = tx.Where(clause.IN{Column: col, Values: in})
		default:
			tx = tx.Where(clause.Eq{Column: col, Value: f.Value})
		}
	}
	return tx
}

// isUniqueViolation recognizes duplicate-key failures from postgres, sqlite,
// and gorm's translated error.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

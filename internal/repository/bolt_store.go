package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"

	"threadline/internal/models"
	"threadline/internal/observability"

	"go.mongodb.org/mongo-driver/bson"
	bolt "go.etcd.io/bbolt"
)

// boltStore keeps one bucket per collection, keyed by id, with BSON values so
// field names and filter semantics match the MongoDB backend. Queries scan
// the bucket; it is meant for single-node and development deployments.
type boltStore[T models.Document] struct {
	db       *bolt.DB
	bucket   []byte
	resource string
	log      *observability.RepoLogger
}

// NewBoltCollection returns a Store for T kept in the named bucket.
func NewBoltCollection[T models.Document](db *bolt.DB, bucket, resource string) Store[T] {
	return &boltStore[T]{
		db:       db,
		bucket:   []byte(bucket),
		resource: resource,
		log:      observability.NewRepoLogger(resource),
	}
}

// NewBoltStore creates the collection buckets and builds the interaction store.
func NewBoltStore(db *bolt.DB) (*InteractionStore, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{collectionPosts, collectionLikes, collectionFollows, collectionProfiles, collectionNotifications} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &InteractionStore{
		Posts:         NewBoltCollection[models.Post](db, collectionPosts, "post"),
		Likes:         NewBoltCollection[models.Like](db, collectionLikes, "like"),
		Follows:       NewBoltCollection[models.Follow](db, collectionFollows, "follow"),
		Profiles:      NewBoltCollection[models.Profile](db, collectionProfiles, "profile"),
		Notifications: NewBoltCollection[models.Notification](db, collectionNotifications, "notification"),
		backend:       "bolt",
		close: func(_ context.Context) error {
			return db.Close()
		},
	}, nil
}

func (s *boltStore[T]) track(op string) func() {
	return observability.TrackQuery("bolt", op, s.resource)
}

func (s *boltStore[T]) fail(ctx context.Context, op string, err error) error {
	s.log.LogError(ctx, err, op)
	return models.NewInternalError(err)
}

func (s *boltStore[T]) Get(ctx context.Context, id string) (*T, error) {
	defer s.track("get")()

	var doc T
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(s.bucket).Get([]byte(id))
		if data == nil {
			return nil
		}
		found = true
		return bson.Unmarshal(data, &doc)
	})
	if err != nil {
		return nil, s.fail(ctx, "get", err)
	}
	if !found {
		return nil, models.NewNotFoundError(s.resource, id)
	}
	return &doc, nil
}

func (s *boltStore[T]) List(ctx context.Context, q Query) ([]*T, error) {
	defer s.track("list")()

	var (
		docs   []*T
		cursor *T
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if q.After != "" {
			data := b.Get([]byte(q.After))
			if data == nil {
				return cursorNotFound()
			}
			cursor = new(T)
			if err := bson.Unmarshal(data, cursor); err != nil {
				return err
			}
		}
		return b.ForEach(func(_, v []byte) error {
			if !matchAll(bson.Raw(v), q.Filters) {
				return nil
			}
			doc := new(T)
			if err := bson.Unmarshal(v, doc); err != nil {
				return err
			}
			if cursor != nil && !afterCursor(q.Ascending, *cursor, *doc) {
				return nil
			}
			docs = append(docs, doc)
			return nil
		})
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, s.fail(ctx, "list", err)
	}

	sort.Slice(docs, func(i, j int) bool {
		a, b := *docs[i], *docs[j]
		ta, tb := a.CreatedTime(), b.CreatedTime()
		if !ta.Equal(tb) {
			if q.Ascending {
				return ta.Before(tb)
			}
			return ta.After(tb)
		}
		if q.Ascending {
			return a.DocID() < b.DocID()
		}
		return a.DocID() > b.DocID()
	})
	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	if docs == nil {
		docs = []*T{}
	}
	return docs, nil
}

func (s *boltStore[T]) Count(ctx context.Context, filters ...Filter) (int64, error) {
	defer s.track("count")()

	var n int64
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).ForEach(func(_, v []byte) error {
			if matchAll(bson.Raw(v), filters) {
				n++
			}
			return nil
		})
	})
	if err != nil {
		return 0, s.fail(ctx, "count", err)
	}
	return n, nil
}

func (s *boltStore[T]) Create(ctx context.Context, doc *T) error {
	defer s.track("create")()

	data, err := bson.Marshal(doc)
	if err != nil {
		return s.fail(ctx, "create", err)
	}
	id := []byte((*doc).DocID())
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b.Get(id) != nil {
			return ErrDuplicate
		}
		return b.Put(id, data)
	})
	if errors.Is(err, ErrDuplicate) {
		return ErrDuplicate
	}
	if err != nil {
		return s.fail(ctx, "create", err)
	}
	return nil
}

func (s *boltStore[T]) Update(ctx context.Context, id string, patch Patch) error {
	defer s.track("update")()

	missing := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		data := b.Get([]byte(id))
		if data == nil {
			missing = true
			return nil
		}
		var fields bson.M
		if err := bson.Unmarshal(data, &fields); err != nil {
			return err
		}
		for k, v := range patch {
			fields[mongoField(k)] = v
		}
		out, err := bson.Marshal(fields)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), out)
	})
	if err != nil {
		return s.fail(ctx, "update", err)
	}
	if missing {
		return models.NewNotFoundError(s.resource, id)
	}
	return nil
}

func (s *boltStore[T]) Delete(ctx context.Context, id string) error {
	defer s.track("delete")()

	missing := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b.Get([]byte(id)) == nil {
			missing = true
			return nil
		}
		return b.Delete([]byte(id))
	})
	if err != nil {
		return s.fail(ctx, "delete", err)
	}
	if missing {
		return models.NewNotFoundError(s.resource, id)
	}
	return nil
}

func matchAll(raw bson.Raw, filters []Filter) bool {
	for _, f := range filters {
		if !matchFilter(raw, f) {
			return false
		}
	}
	return true
}

func matchFilter(raw bson.Raw, f Filter) bool {
	val, err := raw.LookupErr(mongoField(f.Field))
	switch f.Op {
	case OpIn:
		if err != nil {
			return false
		}
		values, _ := f.Value.([]string)
		for _, v := range values {
			if rawEquals(val, v) {
				return true
			}
		}
		return false
	default:
		if err != nil {
			// An omitted field matches its zero value.
			return f.Value == nil || reflect.ValueOf(f.Value).IsZero()
		}
		return rawEquals(val, f.Value)
	}
}

func rawEquals(val bson.RawValue, v any) bool {
	t, data, err := bson.MarshalValue(v)
	if err != nil {
		return false
	}
	return val.Type == t && bytes.Equal(val.Value, data)
}

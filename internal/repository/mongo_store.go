package repository

import (
	"context"
	"errors"

	"threadline/internal/models"
	"threadline/internal/observability"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoStore[T models.Document] struct {
	coll     *mongo.Collection
	resource string
	log      *observability.RepoLogger
}

// NewMongoCollection returns a Store for T backed by one MongoDB collection.
func NewMongoCollection[T models.Document](coll *mongo.Collection, resource string) Store[T] {
	return &mongoStore[T]{
		coll:     coll,
		resource: resource,
		log:      observability.NewRepoLogger(resource),
	}
}

// NewMongoStore builds the interaction store on a MongoDB database.
func NewMongoStore(db *mongo.Database) *InteractionStore {
	return &InteractionStore{
		Posts:         NewMongoCollection[models.Post](db.Collection(collectionPosts), "post"),
		Likes:         NewMongoCollection[models.Like](db.Collection(collectionLikes), "like"),
		Follows:       NewMongoCollection[models.Follow](db.Collection(collectionFollows), "follow"),
		Profiles:      NewMongoCollection[models.Profile](db.Collection(collectionProfiles), "profile"),
		Notifications: NewMongoCollection[models.Notification](db.Collection(collectionNotifications), "notification"),
		backend:       "mongo",
		ping: func(ctx context.Context) error {
			return db.Client().Ping(ctx, nil)
		},
		close: func(ctx context.Context) error {
			return db.Client().Disconnect(ctx)
		},
	}
}

// EnsureMongoIndexes creates the unique edge indexes and the feed indexes.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		collectionLikes: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "post_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "post_id", Value: 1}}},
		},
		collectionFollows: {
			{Keys: bson.D{{Key: "follower_id", Value: 1}, {Key: "following_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "following_id", Value: 1}}},
		},
		collectionPosts: {
			{Keys: bson.D{{Key: "parent_post_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
			{Keys: bson.D{{Key: "author_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		collectionNotifications: {
			{Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		collectionProfiles: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for name, idx := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return err
		}
	}
	return nil
}

func (s *mongoStore[T]) track(op string) func() {
	return observability.TrackQuery("mongo", op, s.resource)
}

func (s *mongoStore[T]) fail(ctx context.Context, op string, err error) error {
	s.log.LogError(ctx, err, op)
	return models.NewInternalError(err)
}

func (s *mongoStore[T]) Get(ctx context.Context, id string) (*T, error) {
	defer s.track("get")()

	var doc T
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.NewNotFoundError(s.resource, id)
		}
		return nil, s.fail(ctx, "get", err)
	}
	return &doc, nil
}

func (s *mongoStore[T]) List(ctx context.Context, q Query) ([]*T, error) {
	defer s.track("list")()

	filter := mongoFilter(q.Filters)

	if q.After != "" {
		var cur T
		if err := s.coll.FindOne(ctx, bson.M{"_id": q.After}).Decode(&cur); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, cursorNotFound()
			}
			return nil, s.fail(ctx, "list", err)
		}
		cmp := "$lt"
		if q.Ascending {
			cmp = "$gt"
		}
		t := cur.CreatedTime()
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.M{"created_at": bson.M{cmp: t}},
			bson.M{"created_at": t, "_id": bson.M{cmp: cur.DocID()}},
		}})
	}

	dir := -1
	if q.Ascending {
		dir = 1
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: dir}, {Key: "_id", Value: dir}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, s.fail(ctx, "list", err)
	}
	docs := make([]*T, 0)
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, s.fail(ctx, "list", err)
	}
	return docs, nil
}

func (s *mongoStore[T]) Count(ctx context.Context, filters ...Filter) (int64, error) {
	defer s.track("count")()

	n, err := s.coll.CountDocuments(ctx, mongoFilter(filters))
	if err != nil {
		return 0, s.fail(ctx, "count", err)
	}
	return n, nil
}

func (s *mongoStore[T]) Create(ctx context.Context, doc *T) error {
	defer s.track("create")()

	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return s.fail(ctx, "create", err)
	}
	return nil
}

func (s *mongoStore[T]) Update(ctx context.Context, id string, patch Patch) error {
	defer s.track("update")()

	set := bson.M{}
	for k, v := range patch {
		set[mongoField(k)] = v
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return s.fail(ctx, "update", err)
	}
	if res.MatchedCount == 0 {
		return models.NewNotFoundError(s.resource, id)
	}
	return nil
}

func (s *mongoStore[T]) Delete(ctx context.Context, id string) error {
	defer s.track("delete")()

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return s.fail(ctx, "delete", err)
	}
	if res.DeletedCount == 0 {
		return models.NewNotFoundError(s.resource, id)
	}
	return nil
}

func mongoField(name string) string {
	if name == "id" {
		return "_id"
	}
	return name
}

func mongoFilter(filters []Filter) bson.D {
	out := bson.D{}
	for _, f := range filters {
		switch f.Op {
		case OpIn:
			values, _ := f.Value.([]string)
			if values == nil {
				values = []string{}
			}
			out = append(out, bson.E{Key: mongoField(f.Field), Value: bson.M{"$in": values}})
		default:
			out = append(out, bson.E{Key: mongoField(f.Field), Value: f.Value})
		}
	}
	return out
}

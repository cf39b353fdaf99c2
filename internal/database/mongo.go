package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"threadline/internal/config"
	"threadline/internal/observability"
	"threadline/internal/repository"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	bolt "go.etcd.io/bbolt"
)

// ConnectMongo dials MongoDB, verifies the connection and ensures indexes.
func ConnectMongo(ctx context.Context, cfg *config.Config) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(cfg.MongoDatabase)
	if err := repository.EnsureMongoIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create MongoDB indexes: %w", err)
	}

	observability.Logger.Info("MongoDB connected successfully", slog.String("database", cfg.MongoDatabase))
	return db, nil
}

// ConnectBolt opens the embedded bbolt file.
func ConnectBolt(cfg *config.Config) (*bolt.DB, error) {
	db, err := bolt.Open(cfg.BoltPath, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database %s: %w", cfg.BoltPath, err)
	}
	observability.Logger.Info("Bolt store opened", slog.String("path", cfg.BoltPath))
	return db, nil
}

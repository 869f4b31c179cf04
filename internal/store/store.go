// Package store provides the MongoDB document store for projects, the
// transaction log and users.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	projectsCollection     = "projects"
	transactionsCollection = "transactions"
	usersCollection        = "users"
)

// Store wraps the gateway's MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Config holds store configuration.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// NewStore connects to MongoDB and verifies the connection.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo URI required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("database name required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &Store{
		client: client,
		db:     client.Database(cfg.Database),
	}, nil
}

// Ping verifies connectivity to the primary.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) projects() *mongo.Collection {
	return s.db.Collection(projectsCollection)
}

func (s *Store) transactions() *mongo.Collection {
	return s.db.Collection(transactionsCollection)
}

func (s *Store) users() *mongo.Collection {
	return s.db.Collection(usersCollection)
}

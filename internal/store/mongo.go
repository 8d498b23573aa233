package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ── Document Store ─────────────────────────────────────────
// Thin wrapper around the MongoDB client. The Store is created once at
// startup and injected into every component that needs it — no
// package-level handle.

// Store owns the client and database for imported collections.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	log    *logrus.Logger
}

// Connect opens a client for uri and pings it. The database name may be
// embedded in the URI path; dbName wins when both are set.
func Connect(ctx context.Context, uri, dbName string, log *logrus.Logger) (*Store, error) {
	if dbName == "" {
		dbName = databaseFromURI(uri)
	}
	if dbName == "" {
		return nil, fmt.Errorf("store: database name required")
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	log.WithField("database", dbName).Info("connected to document store")
	return &Store{
		client: client,
		db:     client.Database(dbName),
		log:    log,
	}, nil
}

// databaseFromURI extracts the database name from a connection string
// path (mongodb://host/DB?params).
func databaseFromURI(uri string) string {
	for _, prefix := range []string{"mongodb+srv://", "mongodb://"} {
		uri = strings.TrimPrefix(uri, prefix)
	}
	if at := strings.Index(uri, "@"); at != -1 {
		uri = uri[at+1:]
	}
	slash := strings.Index(uri, "/")
	if slash == -1 {
		return ""
	}
	path := uri[slash+1:]
	if q := strings.Index(path, "?"); q != -1 {
		path = path[:q]
	}
	return path
}

// Database exposes the underlying database for collaborators that need
// raw collection access (the provenance store).
func (s *Store) Database() *mongo.Database { return s.db }

// CollectionExists reports whether the named collection exists.
// Explicit existence query, never an exception-based probe.
func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	names, err := s.db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return false, fmt.Errorf("list collections: %w", err)
	}
	return len(names) > 0, nil
}

// Drop removes the named collection. Dropping a collection that does
// not exist is a no-op.
func (s *Store) Drop(ctx context.Context, name string) error {
	exists, err := s.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	if err := s.db.Collection(name).Drop(ctx); err != nil {
		return fmt.Errorf("drop collection %q: %w", name, err)
	}
	s.log.WithField("collection", name).Info("collection dropped")
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

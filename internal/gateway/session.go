// Package gateway owns the MongoDB session used by the backup and restore
// engines: connection establishment with bounded timeouts, a liveness
// probe, collection enumeration, and the narrow document operations the
// engines consume.
package gateway

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/DipoleDigital/MongoDBBackup/internal/config"
	"github.com/DipoleDigital/MongoDBBackup/pkg/logger"
)

// CountUnknown is reported when a collection count exceeds its time budget
// or fails; enumeration carries on instead of hanging.
const CountUnknown int64 = -1

// CollectionInfo pairs a collection name with its approximate document
// count at enumeration time.
type CollectionInfo struct {
	Name  string
	Count int64
}

// Session is a live, ping-verified connection to one database. It is
// passed explicitly to engine calls; no package-level connection state
// exists.
type Session struct {
	client *mongo.Client
	db     *mongo.Database
	cfg    *config.Config
	log    *logger.Logger
}

// Connect establishes a client with the configured connect, socket and
// server-selection timeouts, then verifies liveness with a ping before
// returning the session. Failures are classified as ErrConnectionUnavailable
// or ErrServerTimeout so callers can tell a bad address from a slow server.
func Connect(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Session, error) {
	if cfg.Database.Database == "" {
		return nil, fmt.Errorf("database name is required")
	}

	opts := options.Client().
		ApplyURI(cfg.GetMongoURI()).
		SetConnectTimeout(cfg.ConnectTimeout()).
		SetSocketTimeout(cfg.SocketTimeout()).
		SetServerSelectionTimeout(cfg.ServerSelectionTimeout())

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ServerSelectionTimeout())
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, classifyConnectError(err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, classifyConnectError(err)
	}

	log.Debugf("connected to %s, database %s", cfg.ServerLabel(), cfg.Database.Database)

	return &Session{
		client: client,
		db:     client.Database(cfg.Database.Database),
		cfg:    cfg,
		log:    log,
	}, nil
}

func (s *Session) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}

	disconnectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.client.Disconnect(disconnectCtx)
}

// Database returns the name of the connected database.
func (s *Session) Database() string {
	return s.cfg.Database.Database
}

// ListCollections enumerates collection names together with approximate
// document counts. Each count runs under the configured budget; one that
// times out or errors is reported as CountUnknown rather than failing the
// enumeration.
func (s *Session) ListCollections(ctx context.Context) ([]CollectionInfo, error) {
	names, err := s.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	infos := make([]CollectionInfo, 0, len(names))
	for _, name := range names {
		count, err := s.Count(ctx, name)
		if err != nil {
			s.log.Warnf("count for %s unavailable: %v", name, err)
			count = CountUnknown
		}
		infos = append(infos, CollectionInfo{Name: name, Count: count})
	}

	return infos, nil
}

// Count returns the number of documents in a collection, bounded by the
// configured count budget.
func (s *Session) Count(ctx context.Context, collection string) (int64, error) {
	opts := options.Count().SetMaxTime(s.cfg.CountBudget())
	count, err := s.db.Collection(collection).CountDocuments(ctx, bson.D{}, opts)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents in %s: %w", collection, err)
	}
	return count, nil
}

// Stream iterates an unfiltered cursor over the full collection, invoking
// fn once per document. Documents are held one at a time; memory stays
// bounded regardless of collection size. Iteration stops on the first fn
// or cursor error.
func (s *Session) Stream(ctx context.Context, collection string, fn func(bson.D) error) error {
	cursor, err := s.db.Collection(collection).Find(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("failed to query collection %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var document bson.D
		if err := cursor.Decode(&document); err != nil {
			return fmt.Errorf("failed to decode document from %s: %w", collection, err)
		}
		if err := fn(document); err != nil {
			return err
		}
	}

	if err := cursor.Err(); err != nil {
		return fmt.Errorf("error reading documents from %s: %w", collection, err)
	}

	return nil
}

// InsertBatch bulk-inserts one batch of documents.
func (s *Session) InsertBatch(ctx context.Context, collection string, batch []interface{}) error {
	if len(batch) == 0 {
		return nil
	}

	opts := options.InsertMany().SetOrdered(false)
	if _, err := s.db.Collection(collection).InsertMany(ctx, batch, opts); err != nil {
		return fmt.Errorf("failed to insert batch into %s: %w", collection, err)
	}
	return nil
}

// Drop removes the destination collection. A missing namespace is not an
// error.
func (s *Session) Drop(ctx context.Context, collection string) error {
	if err := s.db.Collection(collection).Drop(ctx); err != nil {
		if isNamespaceNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to drop collection %s: %w", collection, err)
	}
	return nil
}

func isNamespaceNotFound(err error) bool {
	cmdErr, ok := err.(mongo.CommandError)
	return ok && cmdErr.Code == 26
}

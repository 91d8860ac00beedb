package archive

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dancedb/dancedb/internal/stepsheet"
	"github.com/dancedb/dancedb/internal/types"
)

// MongoArchive writes records to a MongoDB collection.
type MongoArchive struct {
	client     *mongo.Client
	collection *mongo.Collection
	mu         sync.Mutex
	count      int
	logger     *slog.Logger
}

// NewMongoArchive connects to MongoDB and pings the server.
func NewMongoArchive(ctx context.Context, uri, database, collection string, logger *slog.Logger) (*MongoArchive, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Op: "connect", Err: err}
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Op: "ping", Err: err}
	}

	return &MongoArchive{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger.With("component", "mongo_archive"),
	}, nil
}

func (a *MongoArchive) Name() string { return "mongodb" }

func (a *MongoArchive) Store(ctx context.Context, records []stepsheet.DanceRecord) error {
	if len(records) == 0 {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	docs := make([]any, 0, len(records))
	for _, r := range records {
		doc, err := Document(r, now())
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := a.collection.InsertMany(ctx, docs); err != nil {
		return &types.StorageError{Backend: "mongodb", Op: "insert", Err: fmt.Errorf("%d records: %w", len(docs), err)}
	}

	a.count += len(docs)
	a.logger.Debug("records stored in mongodb", "count", len(docs), "total", a.count)
	return nil
}

func (a *MongoArchive) Close() error {
	a.logger.Info("mongodb archive closing", "total_records", a.count)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.client.Disconnect(ctx)
}

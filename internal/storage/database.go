package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/go-ispider/ispider/internal/types"
)

// MongoStorage writes crawl-derived items (SEO audit results, discovered
// link records) to a MongoDB collection, tagging each document with the
// dom_tld it came from so a single collection can be sliced per domain
// without a join, mirroring the per-domain partitioning the dump store
// applies to raw responses.
type MongoStorage struct {
	client     *mongo.Client
	collection *mongo.Collection
	mu         sync.Mutex
	count      int
	logger     *slog.Logger
}

// NewMongoStorage creates a new MongoDB storage backend and ensures a
// unique index on the source URL so a retried/duplicate audit for the same
// page never produces two documents.
func NewMongoStorage(uri, database, collection string, logger *slog.Logger) (*MongoStorage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	coll := client.Database(database).Collection(collection)

	idxCtx, idxCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer idxCancel()
	_, err = coll.Indexes().CreateOne(idxCtx, mongo.IndexModel{
		Keys:    map[string]int{"_source_url": 1},
		Options: options.Index().SetUnique(true).SetSparse(true),
	})
	if err != nil {
		logger.Warn("mongodb index creation failed, continuing without it", "error", err)
	}

	return &MongoStorage{
		client:     client,
		collection: coll,
		logger:     logger.With("component", "mongo_storage"),
	}, nil
}

func (s *MongoStorage) Name() string { return "mongodb" }

// Store upserts items by source URL rather than a bare insert, so a page
// re-audited after a retry replaces its prior document instead of
// duplicating it.
func (s *MongoStorage) Store(items []*types.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, item := range items {
		doc := make(map[string]any, len(item.Fields)+4)
		doc["_source_url"] = item.URL
		doc["_domain"] = domainOf(item.URL)
		doc["_timestamp"] = item.Timestamp
		doc["_source"] = item.Source
		for k, v := range item.Fields {
			doc[k] = v
		}

		filter := map[string]any{"_source_url": item.URL}
		_, err := s.collection.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
		if err != nil {
			return fmt.Errorf("mongodb upsert: %w", err)
		}
		s.count++
	}

	s.logger.Debug("items stored in mongodb", "count", len(items), "total", s.count)
	return nil
}

func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	domTLD, _ := types.CanonicalDomainKeys(u)
	return domTLD
}

func (s *MongoStorage) Close() error {
	s.logger.Info("mongodb storage closing", "total_items", s.count)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// --- Multi-Storage Fan-Out ---

// MultiStorage writes items to multiple backends simultaneously.
type MultiStorage struct {
	backends []Storage
	logger   *slog.Logger
}

// NewMultiStorage creates a storage that fans out to multiple backends.
func NewMultiStorage(backends []Storage, logger *slog.Logger) *MultiStorage {
	return &MultiStorage{
		backends: backends,
		logger:   logger.With("component", "multi_storage"),
	}
}

func (s *MultiStorage) Name() string { return "multi" }

func (s *MultiStorage) Store(items []*types.Item) error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Store(items); err != nil {
			s.logger.Error("backend store failed", "backend", backend.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *MultiStorage) Close() error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Close(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

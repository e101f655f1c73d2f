package embedder

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/philippgille/chromem-go"
)

const persistentCacheCollection = "embeddings"

// PersistentCache is a key→vector cache backed by chromem-go, an
// embedded (no external server) vector store. Unlike Cache it survives
// process restarts: every Set is flushed to disk immediately.
//
// It reuses chromem-go's document store purely as a durable key-value
// map — Get looks entries up by ID, not by similarity search, so this
// is not a substitute for router's similarity matching.
type PersistentCache struct {
	db         *chromem.DB
	collection *chromem.Collection
	path       string
	compress   bool
}

// NewPersistentCache opens (or creates) a chromem-go database rooted at
// path. The directory is created if it doesn't exist. When compress is
// true the on-disk file is gzip-compressed.
func NewPersistentCache(path string, compress bool) (*PersistentCache, error) {
	if path == "" {
		return nil, fmt.Errorf("persistent cache path must not be empty")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create persistent cache directory: %w", err)
	}

	dbPath := path + "/embeddings.gob"
	if compress {
		dbPath += ".gz"
	}

	db := chromem.NewDB()
	if _, err := os.Stat(dbPath); err == nil {
		//nolint:staticcheck // Import reads back the file written by Export in persist.
		if err := db.Import(dbPath, ""); err != nil {
			return nil, fmt.Errorf("load persistent cache at %s: %w", dbPath, err)
		}
		slog.Info("loaded embedding cache from disk", "path", dbPath)
	} else {
		slog.Info("created new embedding cache", "path", dbPath)
	}

	// Vectors always arrive pre-computed from Service, so the embedding
	// function chromem-go would use to embed new text is never called.
	identityEmbed := func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("persistent cache embedding function called, vectors must be pre-computed")
	}

	col, err := db.GetOrCreateCollection(persistentCacheCollection, nil, identityEmbed)
	if err != nil {
		return nil, fmt.Errorf("open embedding cache collection: %w", err)
	}

	return &PersistentCache{db: db, collection: col, path: path, compress: compress}, nil
}

// Get returns the cached vector for key, or (nil, false) on a miss.
func (c *PersistentCache) Get(key string) ([]float32, bool) {
	doc, err := c.collection.GetByID(context.Background(), key)
	if err != nil {
		return nil, false
	}
	return doc.Embedding, true
}

// Set upserts key's vector and flushes the database to disk.
func (c *PersistentCache) Set(key string, vector []float32) {
	doc := chromem.Document{ID: key, Embedding: vector}
	if err := c.collection.AddDocuments(context.Background(), []chromem.Document{doc}, 1); err != nil {
		slog.Warn("embedding cache upsert failed", "key", key, "error", err)
		return
	}
	if err := c.persist(); err != nil {
		slog.Warn("embedding cache persist failed", "error", err)
	}
}

// Len reports the number of entries currently held.
func (c *PersistentCache) Len() int {
	return c.collection.Count()
}

func (c *PersistentCache) persist() error {
	dbPath := c.path + "/embeddings.gob"
	if c.compress {
		dbPath += ".gz"
	}
	//nolint:staticcheck // Export is the documented way to flush a chromem-go DB to disk.
	return c.db.Export(dbPath, c.compress, "")
}

// Ensure PersistentCache satisfies the same surface as Cache.
var _ cacheStore = (*PersistentCache)(nil)

package services

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"ragify-backend/internal/logger"
	"ragify-backend/models"

	chromem "github.com/philippgille/chromem-go"
)

// VectorStore is the gateway to the persistent on-disk vector database. The
// store is reopened per call rather than held open; cross-request consistency
// is the store's own responsibility. Absence of the persist directory means
// "empty database", not an error.
type VectorStore struct {
	persistDir string
	batchSize  int
	embedFunc  chromem.EmbeddingFunc
}

// SearchResult is one retrieved chunk with its similarity score.
type SearchResult struct {
	Text       string
	Similarity float32
	Metadata   map[string]string
}

// NewVectorStore creates a vector store gateway rooted at persistDir. The
// same embedFunc serves ingestion and query so both share one embedding space.
func NewVectorStore(persistDir string, batchSize int, embedFunc chromem.EmbeddingFunc) *VectorStore {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &VectorStore{
		persistDir: persistDir,
		batchSize:  batchSize,
		embedFunc:  embedFunc,
	}
}

// Exists reports whether the persist directory is present on disk.
func (s *VectorStore) Exists() bool {
	info, err := os.Stat(s.persistDir)
	return err == nil && info.IsDir()
}

func (s *VectorStore) open() (*chromem.DB, error) {
	db, err := chromem.NewPersistentDB(s.persistDir, true)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store at %s: %w", s.persistDir, err)
	}
	return db, nil
}

// Ingest embeds chunks in fixed-size batches and appends them to the named
// collection, creating it if absent. A failure partway through leaves
// previously committed batches persisted; there is no cross-batch rollback.
func (s *VectorStore) Ingest(ctx context.Context, chunks []models.Chunk, collectionName string) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	db, err := s.open()
	if err != nil {
		return 0, err
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, s.embedFunc)
	if err != nil {
		return 0, fmt.Errorf("failed to open collection %s: %w", collectionName, err)
	}

	totalAdded := 0
	for start := 0; start < len(chunks); start += s.batchSize {
		end := start + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		batch := make([]chromem.Document, 0, end-start)
		for _, chunk := range chunks[start:end] {
			batch = append(batch, chromem.Document{
				ID:      chunk.ChunkID,
				Content: chunk.Text,
				Metadata: map[string]string{
					"source":   chunk.Source,
					"page":     strconv.Itoa(chunk.Page),
					"chunk":    strconv.Itoa(chunk.ChunkIndex),
					"is_error": strconv.FormatBool(chunk.IsError),
				},
			})
		}

		// Sequential embedding within the batch; no intra-request fan-out.
		if err := collection.AddDocuments(ctx, batch, 1); err != nil {
			return totalAdded, fmt.Errorf("failed to add batch %d: %w", start/s.batchSize+1, err)
		}
		totalAdded += len(batch)
		logger.Debug("Added batch to vector store", "collection", collectionName, "batch_size", len(batch), "total", totalAdded)
	}

	return totalAdded, nil
}

// SimilaritySearch embeds the query with the ingestion-time embedding model
// and returns up to k nearest chunks. Never pads: k is clamped to the
// collection size.
func (s *VectorStore) SimilaritySearch(ctx context.Context, query string, k int, collectionName string) ([]SearchResult, error) {
	if !s.Exists() {
		return nil, nil
	}

	db, err := s.open()
	if err != nil {
		return nil, err
	}

	collection := db.GetCollection(collectionName, s.embedFunc)
	if collection == nil {
		return nil, nil
	}

	count := collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k <= 0 {
		k = 10
	}
	if k > count {
		k = count
	}

	results, err := collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, SearchResult{
			Text:       r.Content,
			Similarity: r.Similarity,
			Metadata:   r.Metadata,
		})
	}
	return out, nil
}

// ListCollections returns the collection names in sorted order.
func (s *VectorStore) ListCollections() ([]string, error) {
	if !s.Exists() {
		return nil, nil
	}

	db, err := s.open()
	if err != nil {
		return nil, err
	}

	collections := db.ListCollections()
	names := make([]string, 0, len(collections))
	for name := range collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Count returns the number of chunks stored in a collection.
func (s *VectorStore) Count(collectionName string) (int, error) {
	if !s.Exists() {
		return 0, nil
	}

	db, err := s.open()
	if err != nil {
		return 0, err
	}

	collection := db.GetCollection(collectionName, s.embedFunc)
	if collection == nil {
		return 0, nil
	}
	return collection.Count(), nil
}

// DeleteCollection removes a collection's member records together with the
// collection shell; in this store both live under one directory, so dropping
// the collection removes its records from disk as well.
func (s *VectorStore) DeleteCollection(ctx context.Context, collectionName string) error {
	if !s.Exists() {
		return nil
	}

	db, err := s.open()
	if err != nil {
		return err
	}

	if err := db.DeleteCollection(collectionName); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", collectionName, err)
	}
	return nil
}

// NormalizeCollectionName maps a filename to its collection key: every
// non-alphanumeric rune becomes an underscore, so "My File-1.pdf" and
// repeated ingests of it deterministically reuse "My_File_1_pdf".
func NormalizeCollectionName(filename string) string {
	var b strings.Builder
	b.Grow(len(filename))
	for _, r := range filename {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

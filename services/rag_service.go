package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"ragify-backend/internal/config"
	"ragify-backend/internal/logger"
	"ragify-backend/internal/telemetry"
	"ragify-backend/models"
)

// TextExtractor converts an uploaded file into a text stream.
type TextExtractor interface {
	ExtractText(ctx context.Context, filePath, filename string, useHandwritingOCR bool) (text string, pages int, isError bool)
}

// AnswerGenerator produces an answer for a question given a context block.
type AnswerGenerator interface {
	Answer(ctx context.Context, question, contextBlock string) (string, error)
}

const noDocumentsMessage = "No documents found in the database. Please upload and process some documents first."

// RAGService sequences the ingestion path (extract, chunk, embed, persist)
// and the query path (retrieve, prompt, answer). It holds no state across
// calls beyond its collaborators.
type RAGService struct {
	config    *config.Config
	extractor TextExtractor
	chunker   *ChunkingService
	store     *VectorStore
	llm       AnswerGenerator
	metrics   *telemetry.Metrics
}

// NewRAGService wires the RAG pipeline from its collaborators
func NewRAGService(cfg *config.Config, extractor TextExtractor, chunker *ChunkingService, store *VectorStore, llm AnswerGenerator, metrics *telemetry.Metrics) *RAGService {
	return &RAGService{
		config:    cfg,
		extractor: extractor,
		chunker:   chunker,
		store:     store,
		llm:       llm,
		metrics:   metrics,
	}
}

// ProcessDocument ingests one uploaded document: extract text, split into
// chunks, embed and persist to the collection derived from the filename.
// The uploaded temp file is removed on success and on error alike.
func (s *RAGService) ProcessDocument(ctx context.Context, filePath, filename string, useHandwritingOCR bool) (*models.ProcessResponse, error) {
	start := time.Now()
	defer removeFileIfExists(filePath)

	text, _, isError := s.extractor.ExtractText(ctx, filePath, filename, useHandwritingOCR)

	chunks := s.chunker.ChunkText(text, filename, 1)
	if isError {
		for i := range chunks {
			chunks[i].IsError = true
		}
	}

	collectionName := NormalizeCollectionName(filename)
	written, err := s.store.Ingest(ctx, chunks, collectionName)
	if err != nil {
		return nil, fmt.Errorf("failed to add chunks to vector store: %w", err)
	}

	totalChars := 0
	for _, chunk := range chunks {
		totalChars += len(chunk.Text)
	}

	processingMethod := "standard PDF processing"
	if useHandwritingOCR {
		processingMethod = "handwriting recognition"
	}

	s.metrics.RecordProcessing(ctx, time.Since(start).Seconds(), written, processingMethod)
	logger.Info("Document processed", "filename", filename, "collection", collectionName, "chunks", written, "characters", totalChars)

	return &models.ProcessResponse{
		Success:          true,
		Message:          fmt.Sprintf("Successfully processed %s", filename),
		Filename:         filename,
		ChunksCreated:    written,
		ProcessingMethod: processingMethod,
		TotalCharacters:  totalChars,
	}, nil
}

// QueryDocuments retrieves the top-k chunks for the query and asks the LLM to
// answer from them. An empty or absent database is a normal outcome reported
// as a structured success=false response, never an error.
func (s *RAGService) QueryDocuments(ctx context.Context, query string, k int) (*models.QueryResponse, error) {
	if k <= 0 {
		k = s.config.DefaultTopK
	}

	if !s.store.Exists() {
		s.metrics.RecordQuery(ctx, false)
		return noDocumentsResponse(query, noDocumentsMessage), nil
	}

	collections, err := s.store.ListCollections()
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	if len(collections) == 0 {
		s.metrics.RecordQuery(ctx, false)
		return noDocumentsResponse(query, noDocumentsMessage), nil
	}

	// No federated query across collections: the first collection (sorted
	// order, so deterministic across calls) wins.
	collectionName := collections[0]

	results, err := s.store.SimilaritySearch(ctx, query, k, collectionName)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}
	if len(results) == 0 {
		s.metrics.RecordQuery(ctx, false)
		return noDocumentsResponse(query, "No relevant documents found for your query."), nil
	}

	retrieved := make([]string, len(results))
	ids := make([]int, len(results))
	for i, r := range results {
		retrieved[i] = r.Text
		ids[i] = i
	}
	contextText := strings.Join(retrieved, "\n\n")

	answer, err := s.llm.Answer(ctx, query, contextText)
	if err != nil {
		// Deliberately echo the model error into the answer for transparency
		answer = fmt.Sprintf("Error generating response: %v", err)
	}

	s.metrics.RecordQuery(ctx, true)

	return &models.QueryResponse{
		Success:             true,
		Query:               query,
		Answer:              answer,
		RetrievedDocuments:  retrieved,
		RelevantDocumentIDs: ids,
		ContextUsed:         contextText,
	}, nil
}

// GetStatus reports the vector database state and total chunk count.
func (s *RAGService) GetStatus(ctx context.Context) *models.StatusResponse {
	if !s.store.Exists() {
		return emptyStatusResponse()
	}

	collections, err := s.store.ListCollections()
	if err != nil {
		return &models.StatusResponse{
			Success:        false,
			DocumentCount:  0,
			DatabaseStatus: "error",
			Message:        fmt.Sprintf("Error checking database status: %v", err),
		}
	}

	totalCount := 0
	for _, name := range collections {
		count, err := s.store.Count(name)
		if err != nil {
			logger.Warn("Failed to count collection", "collection", name, "error", err)
			continue
		}
		totalCount += count
	}

	if totalCount == 0 {
		return emptyStatusResponse()
	}

	return &models.StatusResponse{
		Success:        true,
		DocumentCount:  totalCount,
		DatabaseStatus: "active",
		Message:        fmt.Sprintf("Database contains %d document chunks", totalCount),
	}
}

// ResetDatabase deletes every collection. A failure on one collection is
// logged and skipped; it never aborts the rest of the reset.
func (s *RAGService) ResetDatabase(ctx context.Context) *models.ResetResponse {
	if !s.store.Exists() {
		return &models.ResetResponse{
			Success:          true,
			Message:          "Vector database is already empty.",
			ActionsPerformed: []string{"Database was already empty"},
		}
	}

	collections, err := s.store.ListCollections()
	if err != nil {
		return &models.ResetResponse{
			Success:          false,
			Message:          fmt.Sprintf("Could not reset database: %v. Try restarting the application.", err),
			ActionsPerformed: []string{"Reset operation failed"},
		}
	}

	var deleted []string
	for _, name := range collections {
		if err := s.store.DeleteCollection(ctx, name); err != nil {
			logger.Warn("Could not delete collection", "collection", name, "error", err)
			continue
		}
		deleted = append(deleted, name)
	}

	if len(deleted) == 0 {
		return &models.ResetResponse{
			Success:          true,
			Message:          "Vector database was already empty.",
			ActionsPerformed: []string{"No collections found to delete"},
		}
	}

	logger.Info("Vector database reset", "deleted_collections", len(deleted))

	return &models.ResetResponse{
		Success:          true,
		Message:          "Vector database reset complete! You can now upload new documents.",
		ActionsPerformed: []string{fmt.Sprintf("Deleted collections: %s", strings.Join(deleted, ", ")), "Database reset successfully"},
	}
}

func noDocumentsResponse(query, message string) *models.QueryResponse {
	return &models.QueryResponse{
		Success:             false,
		Query:               query,
		Answer:              message,
		RetrievedDocuments:  []string{},
		RelevantDocumentIDs: []int{},
		ContextUsed:         "",
	}
}

func emptyStatusResponse() *models.StatusResponse {
	return &models.StatusResponse{
		Success:        true,
		DocumentCount:  0,
		DatabaseStatus: "empty",
		Message:        "Database is empty. Upload documents to get started.",
	}
}

func removeFileIfExists(path string) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			logger.Warn("Could not remove temp file", "path", path, "error", err)
		}
	}
}

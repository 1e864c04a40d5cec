package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ragify-backend/internal/config"

	chromem "github.com/philippgille/chromem-go"
)

type fakeExtractor struct {
	text    string
	isError bool
}

func (f fakeExtractor) ExtractText(_ context.Context, _, _ string, _ bool) (string, int, bool) {
	return f.text, 1, f.isError
}

type fakeLLM struct {
	answer string
	err    error
}

func (f fakeLLM) Answer(_ context.Context, _, _ string) (string, error) {
	return f.answer, f.err
}

func newTestRAGService(t *testing.T, extractor TextExtractor, llm AnswerGenerator) *RAGService {
	t.Helper()
	cfg := &config.Config{
		DefaultTopK:  5,
		MaxChunkSize: 1000,
		ChunkOverlap: 200,
	}
	store := NewVectorStore(filepath.Join(t.TempDir(), "chroma"), 50, chromem.EmbeddingFunc(stubEmbedding))
	chunker := NewChunkingService(cfg.MaxChunkSize, cfg.ChunkOverlap)
	return NewRAGService(cfg, extractor, chunker, store, llm, nil)
}

func stageTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.pdf")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to stage temp file: %v", err)
	}
	return path
}

func TestQueryDocumentsEmptyDatabase(t *testing.T) {
	svc := newTestRAGService(t, fakeExtractor{}, fakeLLM{})

	resp, err := svc.QueryDocuments(context.Background(), "what is this about?", 5)
	if err != nil {
		t.Fatalf("empty database must not be an error: %v", err)
	}
	if resp.Success {
		t.Errorf("expected success=false on empty database")
	}
	if !strings.Contains(resp.Answer, "No documents found") {
		t.Errorf("unexpected answer: %q", resp.Answer)
	}
	if resp.RetrievedDocuments == nil || len(resp.RetrievedDocuments) != 0 {
		t.Errorf("expected empty retrieved documents slice, got %#v", resp.RetrievedDocuments)
	}
	if resp.RelevantDocumentIDs == nil || len(resp.RelevantDocumentIDs) != 0 {
		t.Errorf("expected empty document IDs slice, got %#v", resp.RelevantDocumentIDs)
	}
}

func TestProcessDocumentAndQuery(t *testing.T) {
	text := "The mitochondria is the powerhouse of the cell. It produces energy through respiration."
	svc := newTestRAGService(t, fakeExtractor{text: text}, fakeLLM{answer: "It produces energy."})
	ctx := context.Background()

	tempFile := stageTempFile(t, "%PDF-1.4 fake")
	resp, err := svc.ProcessDocument(ctx, tempFile, "Biology Notes.pdf", false)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success: %+v", resp)
	}
	if resp.ChunksCreated != 1 {
		t.Errorf("expected 1 chunk for short text, got %d", resp.ChunksCreated)
	}
	if resp.TotalCharacters != len(text) {
		t.Errorf("expected %d characters, got %d", len(text), resp.TotalCharacters)
	}
	if resp.ProcessingMethod != "standard PDF processing" {
		t.Errorf("unexpected processing method: %q", resp.ProcessingMethod)
	}
	if _, err := os.Stat(tempFile); !os.IsNotExist(err) {
		t.Errorf("temp file should be removed after processing")
	}

	names, err := svc.store.ListCollections()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(names) != 1 || names[0] != "Biology_Notes_pdf" {
		t.Fatalf("expected collection Biology_Notes_pdf, got %v", names)
	}

	query, err := svc.QueryDocuments(ctx, "what does the mitochondria do?", 3)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if !query.Success {
		t.Fatalf("expected successful query: %+v", query)
	}
	if query.Answer != "It produces energy." {
		t.Errorf("unexpected answer: %q", query.Answer)
	}
	if len(query.RetrievedDocuments) == 0 {
		t.Errorf("expected retrieved documents")
	}
	for i, id := range query.RelevantDocumentIDs {
		if id != i {
			t.Errorf("document IDs must be positional, got %v", query.RelevantDocumentIDs)
			break
		}
	}
	if !strings.Contains(query.ContextUsed, "mitochondria") {
		t.Errorf("context should carry the retrieved text, got %q", query.ContextUsed)
	}
}

func TestQueryDocumentsLLMFailure(t *testing.T) {
	svc := newTestRAGService(t, fakeExtractor{text: "Some indexed content about gardening."}, fakeLLM{err: errors.New("model overloaded")})
	ctx := context.Background()

	if _, err := svc.ProcessDocument(ctx, stageTempFile(t, "x"), "garden.pdf", false); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	resp, err := svc.QueryDocuments(ctx, "how do I grow tomatoes?", 2)
	if err != nil {
		t.Fatalf("an LLM failure must not surface as a transport error: %v", err)
	}
	if !resp.Success {
		t.Errorf("retrieval succeeded, so success should stay true")
	}
	if !strings.Contains(resp.Answer, "Error generating response: model overloaded") {
		t.Errorf("expected the model error echoed in the answer, got %q", resp.Answer)
	}
	if len(resp.RetrievedDocuments) == 0 {
		t.Errorf("retrieved documents should still be returned")
	}
}

func TestProcessDocumentExtractionError(t *testing.T) {
	svc := newTestRAGService(t, fakeExtractor{text: "PDF processing failed: malformed xref. Please upload a text file instead.", isError: true}, fakeLLM{})
	ctx := context.Background()

	resp, err := svc.ProcessDocument(ctx, stageTempFile(t, "broken"), "broken.pdf", false)
	if err != nil {
		t.Fatalf("an extraction error still ingests a placeholder chunk: %v", err)
	}
	if resp.ChunksCreated != 1 {
		t.Fatalf("expected 1 placeholder chunk, got %d", resp.ChunksCreated)
	}

	results, err := svc.store.SimilaritySearch(ctx, "anything", 1, "broken_pdf")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 || results[0].Metadata["is_error"] != "true" {
		t.Fatalf("placeholder chunk should carry is_error metadata, got %+v", results)
	}
}

func TestProcessDocumentHandwritingMethodLabel(t *testing.T) {
	svc := newTestRAGService(t, fakeExtractor{text: "Dear diary, today it rained."}, fakeLLM{})

	resp, err := svc.ProcessDocument(context.Background(), stageTempFile(t, "x"), "diary.pdf", true)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if resp.ProcessingMethod != "handwriting recognition" {
		t.Errorf("unexpected processing method: %q", resp.ProcessingMethod)
	}
}

func TestGetStatusLifecycle(t *testing.T) {
	svc := newTestRAGService(t, fakeExtractor{text: "Status test content."}, fakeLLM{})
	ctx := context.Background()

	status := svc.GetStatus(ctx)
	if !status.Success || status.DatabaseStatus != "empty" || status.DocumentCount != 0 {
		t.Fatalf("fresh database should report empty: %+v", status)
	}

	if _, err := svc.ProcessDocument(ctx, stageTempFile(t, "x"), "status.pdf", false); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	status = svc.GetStatus(ctx)
	if !status.Success || status.DatabaseStatus != "active" {
		t.Fatalf("expected active status: %+v", status)
	}
	if status.DocumentCount != 1 {
		t.Errorf("expected 1 chunk counted, got %d", status.DocumentCount)
	}
}

func TestResetDatabase(t *testing.T) {
	svc := newTestRAGService(t, fakeExtractor{text: "Reset test content."}, fakeLLM{})
	ctx := context.Background()

	reset := svc.ResetDatabase(ctx)
	if !reset.Success {
		t.Fatalf("reset of absent database should succeed: %+v", reset)
	}

	if _, err := svc.ProcessDocument(ctx, stageTempFile(t, "x"), "a.pdf", false); err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if _, err := svc.ProcessDocument(ctx, stageTempFile(t, "x"), "b.pdf", false); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	reset = svc.ResetDatabase(ctx)
	if !reset.Success {
		t.Fatalf("reset failed: %+v", reset)
	}
	joined := strings.Join(reset.ActionsPerformed, "; ")
	if !strings.Contains(joined, "a_pdf") || !strings.Contains(joined, "b_pdf") {
		t.Errorf("actions should name the deleted collections, got %v", reset.ActionsPerformed)
	}

	status := svc.GetStatus(ctx)
	if status.DatabaseStatus != "empty" || status.DocumentCount != 0 {
		t.Fatalf("database should be empty after reset: %+v", status)
	}
}

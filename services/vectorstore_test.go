package services

import (
	"context"
	"hash/fnv"
	"path/filepath"
	"testing"

	"ragify-backend/models"

	chromem "github.com/philippgille/chromem-go"
)

// stubEmbedding hashes the text into a small fixed-dimension vector so tests
// run without any embedding model. Identical text always yields the same
// vector.
func stubEmbedding(_ context.Context, text string) ([]float32, error) {
	h := fnv.New32a()
	h.Write([]byte(text))
	sum := h.Sum32()
	return []float32{
		float32(sum%97) + 1,
		float32(sum%31) + 1,
		float32(sum%7) + 1,
	}, nil
}

func testChunks(texts ...string) []models.Chunk {
	chunks := make([]models.Chunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, models.Chunk{
			ChunkID:    "chunk-" + string(rune('a'+i)),
			Text:       text,
			Source:     "doc.pdf",
			Page:       1,
			ChunkIndex: i,
		})
	}
	return chunks
}

func newTestStore(t *testing.T) *VectorStore {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "chroma")
	return NewVectorStore(dir, 50, chromem.EmbeddingFunc(stubEmbedding))
}

func TestNormalizeCollectionName(t *testing.T) {
	cases := map[string]string{
		"My File-1.pdf": "My_File_1_pdf",
		"report.pdf":    "report_pdf",
		"abc123":        "abc123",
		"a b\tc":        "a_b_c",
	}
	for in, want := range cases {
		if got := NormalizeCollectionName(in); got != want {
			t.Errorf("NormalizeCollectionName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestVectorStoreAbsentDirectory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if store.Exists() {
		t.Fatalf("store should not exist before first ingest")
	}

	results, err := store.SimilaritySearch(ctx, "anything", 5, "missing")
	if err != nil || results != nil {
		t.Fatalf("search on absent store: got (%v, %v), want (nil, nil)", results, err)
	}

	names, err := store.ListCollections()
	if err != nil || len(names) != 0 {
		t.Fatalf("list on absent store: got (%v, %v)", names, err)
	}

	if err := store.DeleteCollection(ctx, "missing"); err != nil {
		t.Fatalf("delete on absent store should be a no-op: %v", err)
	}
}

func TestVectorStoreIngestAndCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	written, err := store.Ingest(ctx, testChunks("first chunk", "second chunk", "third chunk"), "doc_pdf")
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if written != 3 {
		t.Fatalf("expected 3 chunks written, got %d", written)
	}
	if !store.Exists() {
		t.Fatalf("store should exist after ingest")
	}

	count, err := store.Count("doc_pdf")
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected count 3, got %d", count)
	}

	// Ingesting nothing is a no-op
	written, err = store.Ingest(ctx, nil, "doc_pdf")
	if err != nil || written != 0 {
		t.Fatalf("empty ingest: got (%d, %v)", written, err)
	}
}

func TestVectorStoreSearchClampsK(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Ingest(ctx, testChunks("alpha text", "beta text", "gamma text"), "doc_pdf"); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	results, err := store.SimilaritySearch(ctx, "alpha text", 10, "doc_pdf")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected k clamped to 3 stored chunks, got %d results", len(results))
	}
	for _, r := range results {
		if r.Text == "" {
			t.Errorf("result missing text: %+v", r)
		}
		if r.Metadata["source"] != "doc.pdf" {
			t.Errorf("result missing source metadata: %+v", r.Metadata)
		}
	}

	// Unknown collection is an empty result, not an error
	results, err = store.SimilaritySearch(ctx, "alpha text", 3, "other_pdf")
	if err != nil || results != nil {
		t.Fatalf("search on unknown collection: got (%v, %v)", results, err)
	}
}

func TestVectorStoreListAndDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Ingest(ctx, testChunks("b text"), "b_pdf"); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if _, err := store.Ingest(ctx, testChunks("a text"), "a_pdf"); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	names, err := store.ListCollections()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(names) != 2 || names[0] != "a_pdf" || names[1] != "b_pdf" {
		t.Fatalf("expected sorted [a_pdf b_pdf], got %v", names)
	}

	if err := store.DeleteCollection(ctx, "a_pdf"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	names, err = store.ListCollections()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(names) != 1 || names[0] != "b_pdf" {
		t.Fatalf("expected [b_pdf] after delete, got %v", names)
	}

	count, err := store.Count("a_pdf")
	if err != nil || count != 0 {
		t.Fatalf("deleted collection should count 0, got (%d, %v)", count, err)
	}
}

package services

import (
	"strings"
	"testing"
)

func TestChunkTextShortInput(t *testing.T) {
	cs := NewChunkingService(1000, 200)
	chunks := cs.ChunkText("A short paragraph that fits in one chunk.", "notes.pdf", 1)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	c := chunks[0]
	if c.Text != "A short paragraph that fits in one chunk." {
		t.Errorf("unexpected chunk text: %q", c.Text)
	}
	if c.Source != "notes.pdf" || c.Page != 1 || c.ChunkIndex != 0 {
		t.Errorf("unexpected metadata: %+v", c)
	}
	if c.ChunkID == "" {
		t.Errorf("chunk ID not assigned")
	}
}

func TestChunkTextEmptyInput(t *testing.T) {
	cs := NewChunkingService(1000, 200)
	if got := cs.ChunkText("", "empty.pdf", 1); len(got) != 0 {
		t.Fatalf("expected no chunks for empty text, got %d", len(got))
	}
	if got := cs.ChunkText("   \n\n  ", "blank.pdf", 1); len(got) != 0 {
		t.Fatalf("expected no chunks for whitespace text, got %d", len(got))
	}
}

func TestChunkTextRespectsSizeAndIndexes(t *testing.T) {
	cs := NewChunkingService(1000, 200)

	var sb strings.Builder
	for i := 0; sb.Len() < 2500; i++ {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString("lorem" + strings.Repeat("x", i%7))
	}
	text := sb.String()

	chunks := cs.ChunkText(text, "big.pdf", 1)
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks for %d characters, got %d", len(text), len(chunks))
	}
	for i, c := range chunks {
		if len(c.Text) > 1000 {
			t.Errorf("chunk %d exceeds max size: %d", i, len(c.Text))
		}
		if c.ChunkIndex != i {
			t.Errorf("chunk %d has index %d", i, c.ChunkIndex)
		}
		if c.Page != 1 || c.Source != "big.pdf" {
			t.Errorf("chunk %d has wrong metadata: %+v", i, c)
		}
	}
}

func TestChunkTextOverlapCarriesBoundary(t *testing.T) {
	cs := NewChunkingService(300, 100)

	words := make([]string, 200)
	for i := range words {
		words[i] = "token" + strings.Repeat("z", i%5)
	}
	chunks := cs.ChunkText(strings.Join(words, " "), "doc.pdf", 1)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i := 1; i < len(chunks); i++ {
		head := strings.SplitN(chunks[i].Text, " ", 2)[0]
		if !strings.Contains(chunks[i-1].Text, head) {
			t.Errorf("chunk %d does not share its leading token %q with the previous chunk", i, head)
		}
	}
}

func TestChunkTextDeterministic(t *testing.T) {
	cs := NewChunkingService(500, 100)
	text := strings.Repeat("alpha beta gamma delta epsilon ", 60)

	first := cs.ChunkText(text, "same.pdf", 1)
	second := cs.ChunkText(text, "same.pdf", 1)
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Text != second[i].Text {
			t.Errorf("chunk %d text differs between runs", i)
		}
		if first[i].ChunkID == second[i].ChunkID {
			t.Errorf("chunk %d reused the same ID across runs", i)
		}
	}
}

func TestChunkTextHardSplitLongWord(t *testing.T) {
	cs := NewChunkingService(100, 20)
	chunks := cs.ChunkText(strings.Repeat("a", 350), "wall.pdf", 1)
	if len(chunks) < 3 {
		t.Fatalf("expected unbroken text to be hard-split, got %d chunks", len(chunks))
	}
	for i, c := range chunks {
		if len(c.Text) > 100 {
			t.Errorf("chunk %d exceeds max size: %d", i, len(c.Text))
		}
	}
}

func TestNewChunkingServiceClampsBadValues(t *testing.T) {
	cs := NewChunkingService(0, 0)
	if cs.maxChunkSize != 1000 {
		t.Errorf("expected default max size 1000, got %d", cs.maxChunkSize)
	}

	cs = NewChunkingService(500, 500)
	if cs.overlap >= cs.maxChunkSize {
		t.Errorf("overlap %d not clamped below max size %d", cs.overlap, cs.maxChunkSize)
	}
}

package services

import (
	"strings"

	"ragify-backend/models"

	"github.com/google/uuid"
)

// defaultSeparators is the split hierarchy: paragraph breaks first, then line
// breaks, then spaces, then a hard character split as last resort.
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// ChunkingService splits extracted text into bounded, overlapping chunks so
// that cross-boundary context is not lost for retrieval. Splitting is
// deterministic: identical input yields an identical chunk sequence.
type ChunkingService struct {
	maxChunkSize int
	overlap      int
	separators   []string
}

// NewChunkingService creates a new chunking service
func NewChunkingService(maxChunkSize, overlap int) *ChunkingService {
	if maxChunkSize <= 0 {
		maxChunkSize = 1000
	}
	if overlap < 0 || overlap >= maxChunkSize {
		overlap = 200
	}
	return &ChunkingService{
		maxChunkSize: maxChunkSize,
		overlap:      overlap,
		separators:   defaultSeparators,
	}
}

// ChunkText splits text and attaches {source, page, chunk_index} metadata.
func (cs *ChunkingService) ChunkText(text, source string, page int) []models.Chunk {
	pieces := cs.splitText(text, cs.separators)

	chunks := make([]models.Chunk, 0, len(pieces))
	for _, piece := range pieces {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		chunks = append(chunks, models.Chunk{
			ChunkID:    uuid.NewString(),
			Text:       piece,
			Source:     source,
			Page:       page,
			ChunkIndex: len(chunks),
		})
	}
	return chunks
}

// splitText recursively splits on the first separator present in the text,
// descending the hierarchy for any piece still larger than the chunk size.
func (cs *ChunkingService) splitText(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var remaining []string
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			separator = sep
			remaining = separators[i+1:]
			break
		}
	}

	var splits []string
	if separator == "" {
		// Hard split into individual characters; merging below restores
		// exact-size chunks with exact overlap.
		for _, r := range text {
			splits = append(splits, string(r))
		}
	} else {
		for _, part := range strings.Split(text, separator) {
			if part != "" {
				splits = append(splits, part)
			}
		}
	}

	var final []string
	var good []string
	for _, split := range splits {
		if len(split) < cs.maxChunkSize {
			good = append(good, split)
			continue
		}
		// Oversized piece: flush what we have, then split it further down
		// the separator hierarchy.
		if len(good) > 0 {
			final = append(final, cs.mergeSplits(good, separator)...)
			good = nil
		}
		final = append(final, cs.splitText(split, remaining)...)
	}
	if len(good) > 0 {
		final = append(final, cs.mergeSplits(good, separator)...)
	}
	return final
}

// mergeSplits greedily joins splits into chunks no larger than maxChunkSize,
// carrying a tail of up to overlap characters into each following chunk.
func (cs *ChunkingService) mergeSplits(splits []string, separator string) []string {
	sepLen := len(separator)

	var chunks []string
	var current []string
	total := 0

	for _, split := range splits {
		extra := 0
		if len(current) > 0 {
			extra = sepLen
		}
		if total+len(split)+extra > cs.maxChunkSize && len(current) > 0 {
			if joined := strings.TrimSpace(strings.Join(current, separator)); joined != "" {
				chunks = append(chunks, joined)
			}
			// Drop from the front until the retained tail fits the overlap
			// budget and the incoming split still fits the chunk.
			for total > cs.overlap || (total+len(split)+extra > cs.maxChunkSize && total > 0) {
				total -= len(current[0])
				if len(current) > 1 {
					total -= sepLen
				}
				current = current[1:]
			}
		}
		if len(current) > 0 {
			total += sepLen
		}
		current = append(current, split)
		total += len(split)
	}

	if joined := strings.TrimSpace(strings.Join(current, separator)); joined != "" {
		chunks = append(chunks, joined)
	}
	return chunks
}

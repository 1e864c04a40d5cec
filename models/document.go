package models

// Chunk is the unit of storage and retrieval: a bounded slice of a
// document's text with positional metadata. Chunks are immutable once
// created; ChunkIndex is unique and increasing within one document split.
type Chunk struct {
	ChunkID    string `json:"chunk_id"`
	Text       string `json:"text"`
	Source     string `json:"source_filename"`
	Page       int    `json:"page_number"`
	ChunkIndex int    `json:"chunk_index"`
	IsError    bool   `json:"is_error,omitempty"`
}

// BoundingBox is an axis-aligned text region box in pixel coordinates.
type BoundingBox struct {
	XMin int `json:"x_min"`
	YMin int `json:"y_min"`
	XMax int `json:"x_max"`
	YMax int `json:"y_max"`
}

// TextRegion is a detected text area on a page image. Transient: produced
// and consumed within a single page's OCR pass, never persisted.
type TextRegion struct {
	BBox         BoundingBox `json:"bbox"`
	Confidence   float64     `json:"confidence"`
	DetectedText string      `json:"detected_text"`
}

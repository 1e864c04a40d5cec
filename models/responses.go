package models

// UploadResponse is returned after a file has been staged for processing.
type UploadResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
	TempPath string `json:"temp_path"`
	Size     int64  `json:"size"`
}

// ProcessRequest asks the server to ingest a previously uploaded file.
type ProcessRequest struct {
	FilePath          string `json:"file_path" binding:"required"`
	Filename          string `json:"filename" binding:"required"`
	UseHandwritingOCR bool   `json:"use_handwriting_ocr"`
}

// ProcessResponse reports the outcome of document ingestion.
type ProcessResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	Filename         string `json:"filename"`
	ChunksCreated    int    `json:"chunks_created"`
	ProcessingMethod string `json:"processing_method"`
	TotalCharacters  int    `json:"total_characters"`
}

// QueryRequest is a natural-language question against the ingested documents.
type QueryRequest struct {
	Query    string `json:"query" binding:"required"`
	NResults int    `json:"n_results"`
}

// QueryResponse carries the generated answer together with the retrieved
// context so callers can inspect what the answer was grounded on.
type QueryResponse struct {
	Success             bool     `json:"success"`
	Query               string   `json:"query"`
	Answer              string   `json:"answer"`
	RetrievedDocuments  []string `json:"retrieved_documents"`
	RelevantDocumentIDs []int    `json:"relevant_document_ids"`
	ContextUsed         string   `json:"context_used"`
}

// StatusResponse reports the vector database state.
type StatusResponse struct {
	Success        bool   `json:"success"`
	DocumentCount  int    `json:"document_count"`
	DatabaseStatus string `json:"database_status"` // empty, active, error
	Message        string `json:"message"`
}

// ResetResponse reports the outcome of a database reset.
type ResetResponse struct {
	Success          bool     `json:"success"`
	Message          string   `json:"message"`
	ActionsPerformed []string `json:"actions_performed"`
}

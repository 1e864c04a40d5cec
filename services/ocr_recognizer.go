package services

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HandwritingRecognizer transcribes a cropped image region into text.
// Recognition is inference-only; the server holds no training state.
type HandwritingRecognizer interface {
	Recognize(ctx context.Context, cropData []byte) (string, error)
}

// RecognitionClient talks to the handwriting recognition model server.
type RecognitionClient struct {
	baseURL    string
	httpClient *http.Client
}

type recognitionResponse struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
	Error   string `json:"error,omitempty"`
}

// NewRecognitionClient creates a new recognition model client
func NewRecognitionClient(baseURL string, timeout time.Duration) *RecognitionClient {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &RecognitionClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// IsHealthy checks if the recognition model server is up with its model loaded
func (c *RecognitionClient) IsHealthy(ctx context.Context) (bool, error) {
	return probeModelServer(ctx, c.httpClient, c.baseURL)
}

// Recognize sends a cropped text region to the recognition server and returns
// its best-guess transcription.
func (c *RecognitionClient) Recognize(ctx context.Context, cropData []byte) (string, error) {
	var recResp recognitionResponse
	if err := postImage(ctx, c.httpClient, c.baseURL+"/recognize", cropData, &recResp); err != nil {
		return "", fmt.Errorf("recognition request failed: %w", err)
	}
	if !recResp.Success {
		return "", fmt.Errorf("recognition failed: %s", recResp.Error)
	}
	return recResp.Text, nil
}

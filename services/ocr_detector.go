package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"ragify-backend/models"
)

// TextDetector finds probable text regions in a page image.
type TextDetector interface {
	Detect(ctx context.Context, imageData []byte) ([]models.TextRegion, error)
}

// DetectionClient talks to the scene-text detection model server.
type DetectionClient struct {
	baseURL    string
	httpClient *http.Client
}

// detectionResponse is the detection server's wire format. Each region is a
// quadrilateral polygon with the detector's own transcription attempt.
type detectionResponse struct {
	Success bool              `json:"success"`
	Regions []detectionRegion `json:"regions"`
	Error   string            `json:"error,omitempty"`
}

type detectionRegion struct {
	Polygon    [][2]float64 `json:"polygon"`
	Text       string       `json:"text"`
	Confidence float64      `json:"confidence"`
}

// modelHealthResponse is the health check response shared by both model servers
type modelHealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Device      string `json:"device"`
	Version     string `json:"version"`
}

// NewDetectionClient creates a new detection model client
func NewDetectionClient(baseURL string, timeout time.Duration) *DetectionClient {
	if timeout <= 0 {
		timeout = 5 * time.Minute // model inference can take time
	}
	return &DetectionClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// IsHealthy checks if the detection model server is up with its model loaded
func (c *DetectionClient) IsHealthy(ctx context.Context) (bool, error) {
	return probeModelServer(ctx, c.httpClient, c.baseURL)
}

// Detect sends the image to the detection server and returns the found text
// regions with polygons normalized to axis-aligned bounding boxes.
func (c *DetectionClient) Detect(ctx context.Context, imageData []byte) ([]models.TextRegion, error) {
	var detResp detectionResponse
	if err := postImage(ctx, c.httpClient, c.baseURL+"/detect", imageData, &detResp); err != nil {
		return nil, fmt.Errorf("detection request failed: %w", err)
	}
	if !detResp.Success {
		return nil, fmt.Errorf("detection failed: %s", detResp.Error)
	}

	regions := make([]models.TextRegion, 0, len(detResp.Regions))
	for _, r := range detResp.Regions {
		if len(r.Polygon) == 0 {
			continue
		}
		regions = append(regions, models.TextRegion{
			BBox:         polygonToBBox(r.Polygon),
			Confidence:   r.Confidence,
			DetectedText: r.Text,
		})
	}
	return regions, nil
}

// polygonToBBox normalizes a quadrilateral polygon to an axis-aligned box by
// taking min/max of its corner coordinates.
func polygonToBBox(polygon [][2]float64) models.BoundingBox {
	xMin, yMin := polygon[0][0], polygon[0][1]
	xMax, yMax := xMin, yMin
	for _, p := range polygon[1:] {
		if p[0] < xMin {
			xMin = p[0]
		}
		if p[0] > xMax {
			xMax = p[0]
		}
		if p[1] < yMin {
			yMin = p[1]
		}
		if p[1] > yMax {
			yMax = p[1]
		}
	}
	return models.BoundingBox{
		XMin: int(xMin),
		YMin: int(yMin),
		XMax: int(xMax),
		YMax: int(yMax),
	}
}

// probeModelServer checks a model server's /health endpoint
func probeModelServer(ctx context.Context, client *http.Client, baseURL string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", baseURL+"/health", nil)
	if err != nil {
		return false, fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return false, fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("model server unhealthy: status %d", resp.StatusCode)
	}

	var healthResp modelHealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&healthResp); err != nil {
		return false, fmt.Errorf("failed to decode health response: %w", err)
	}

	return healthResp.Status == "healthy" && healthResp.ModelLoaded, nil
}

// postImage uploads image bytes as a multipart form and decodes the JSON reply
func postImage(ctx context.Context, client *http.Client, url string, imageData []byte, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fileWriter, err := writer.CreateFormFile("file", "page.png")
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(fileWriter, bytes.NewReader(imageData)); err != nil {
		return fmt.Errorf("failed to copy image data: %w", err)
	}
	writer.Close()

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

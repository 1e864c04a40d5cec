package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"strings"

	"ragify-backend/internal/logger"
	"ragify-backend/models"
)

// OCRProcessor converts a page image into text.
type OCRProcessor interface {
	ProcessImage(ctx context.Context, imagePath string) (string, error)
}

// OCRPipeline chains text detection and handwriting recognition: detect
// regions, crop each one, recognize, and join the results in detection order.
// No reading-order reconstruction is performed.
type OCRPipeline struct {
	detector   TextDetector
	recognizer HandwritingRecognizer
}

// NewOCRPipeline creates an OCR pipeline from a detector and a recognizer
func NewOCRPipeline(detector TextDetector, recognizer HandwritingRecognizer) *OCRPipeline {
	return &OCRPipeline{
		detector:   detector,
		recognizer: recognizer,
	}
}

// ProcessImage runs the full detect + recognize pipeline on one page image.
// A recognition failure on a single region degrades to the detector's own
// transcription for that region; it never aborts the page.
func (p *OCRPipeline) ProcessImage(ctx context.Context, imagePath string) (string, error) {
	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to read page image: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return "", fmt.Errorf("failed to decode page image: %w", err)
	}

	regions, err := p.detector.Detect(ctx, imageData)
	if err != nil {
		return "", fmt.Errorf("text detection failed: %w", err)
	}

	texts := make([]string, 0, len(regions))
	for _, region := range regions {
		text := p.recognizeRegion(ctx, img, region)
		if text != "" {
			texts = append(texts, text)
		}
	}
	return strings.Join(texts, " "), nil
}

// recognizeRegion crops one detected region and transcribes it, preferring
// the recognizer's output when non-empty and falling back to the detector's
// candidate text otherwise.
func (p *OCRPipeline) recognizeRegion(ctx context.Context, img image.Image, region models.TextRegion) string {
	cropData, err := cropImage(img, region.BBox)
	if err != nil {
		logger.Warn("Failed to crop text region", "error", err, "bbox", region.BBox)
		return region.DetectedText
	}

	recognized, err := p.recognizer.Recognize(ctx, cropData)
	if err != nil {
		logger.Warn("Handwriting recognition failed for region", "error", err)
		recognized = ""
	}

	if trimmed := strings.TrimSpace(recognized); trimmed != "" {
		return recognized
	}
	return region.DetectedText
}

// Close releases the pipeline's network resources
func (p *OCRPipeline) Close() {
	if c, ok := p.detector.(*DetectionClient); ok {
		c.httpClient.CloseIdleConnections()
	}
	if c, ok := p.recognizer.(*RecognitionClient); ok {
		c.httpClient.CloseIdleConnections()
	}
}

// cropImage extracts the bounding box from the page image as PNG bytes. The
// box is clamped to the image bounds.
func cropImage(img image.Image, box models.BoundingBox) ([]byte, error) {
	bounds := img.Bounds()
	rect := image.Rect(box.XMin, box.YMin, box.XMax, box.YMax).Intersect(bounds)
	if rect.Empty() {
		return nil, fmt.Errorf("region %+v is outside the image bounds %v", box, bounds)
	}

	sub, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	})
	if !ok {
		return nil, fmt.Errorf("image type %T does not support cropping", img)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, sub.SubImage(rect)); err != nil {
		return nil, fmt.Errorf("failed to encode crop: %w", err)
	}
	return buf.Bytes(), nil
}

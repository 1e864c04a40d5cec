package services

import (
	"context"
	"sync"
	"time"

	"ragify-backend/internal/config"
	"ragify-backend/internal/logger"
)

// ocrModelCache holds the process-wide OCR pipeline. The model servers are
// expensive to warm up (accelerator memory allocation, weight loading), so
// the pipeline is constructed at most once per process and reused across all
// calls. Lifecycle: uninitialized -> loaded -> (cleared -> uninitialized).
type ocrModelCache struct {
	mu       sync.Mutex
	once     *sync.Once
	pipeline *OCRPipeline
	err      error
}

var ocrCache = &ocrModelCache{once: new(sync.Once)}

// AcquireOCRPipeline returns the cached OCR pipeline, constructing it on
// first use. Initialization is guarded by sync.Once so concurrent first
// callers trigger a single load.
func AcquireOCRPipeline(ctx context.Context, cfg *config.Config) (*OCRPipeline, error) {
	return ocrCache.acquire(ctx, cfg)
}

// ClearOCRCache releases the cached model handles. The next acquire reloads.
func ClearOCRCache() {
	ocrCache.clear()
}

func (c *ocrModelCache) acquire(ctx context.Context, cfg *config.Config) (*OCRPipeline, error) {
	c.mu.Lock()
	once := c.once
	c.mu.Unlock()

	once.Do(func() {
		logger.Info("Loading OCR model pipeline for the first time")
		pipeline, err := buildOCRPipeline(ctx, cfg)

		c.mu.Lock()
		c.pipeline, c.err = pipeline, err
		c.mu.Unlock()
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pipeline, c.err
}

func (c *ocrModelCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pipeline != nil {
		c.pipeline.Close()
		logger.Info("OCR model cache cleared")
	}
	c.pipeline, c.err = nil, nil
	// Fresh once so the next acquire reloads
	c.once = new(sync.Once)
}

// buildOCRPipeline constructs the model clients and probes their health so a
// dead model server surfaces at first use rather than mid-page.
func buildOCRPipeline(ctx context.Context, cfg *config.Config) (*OCRPipeline, error) {
	timeout := time.Duration(cfg.OCRTimeout) * time.Second

	detector := NewDetectionClient(cfg.OCRDetectorURL, timeout)
	if healthy, err := detector.IsHealthy(ctx); err != nil || !healthy {
		logger.Warn("Detection model server not healthy at load", "url", cfg.OCRDetectorURL, "error", err)
	}

	recognizer := NewRecognitionClient(cfg.OCRRecognizerURL, timeout)
	if healthy, err := recognizer.IsHealthy(ctx); err != nil || !healthy {
		logger.Warn("Recognition model server not healthy at load", "url", cfg.OCRRecognizerURL, "error", err)
	}

	return NewOCRPipeline(detector, recognizer), nil
}

package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ragify-backend/internal/config"
	"ragify-backend/internal/logger"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor converts an uploaded document into a single text stream. A
// document that cannot be opened or yields no content produces a descriptive
// placeholder string instead of an error: ingestion must always produce at
// least one chunk, so the failure reaches the end user as document content.
type PDFExtractor struct {
	config *config.Config
	ocr    func(ctx context.Context, cfg *config.Config) (*OCRPipeline, error)
}

// NewPDFExtractor creates a new document extractor
func NewPDFExtractor(cfg *config.Config) *PDFExtractor {
	return &PDFExtractor{
		config: cfg,
		ocr:    AcquireOCRPipeline,
	}
}

// ExtractText converts the file at filePath into text. PDF pages either
// contribute their embedded text or, when useHandwritingOCR is set, are
// rasterized and routed through the OCR pipeline. Non-PDF uploads are read
// as plain text. Returns the text, the number of pages seen, and whether the
// text is a failure placeholder rather than document content.
func (e *PDFExtractor) ExtractText(ctx context.Context, filePath, filename string, useHandwritingOCR bool) (string, int, bool) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Sprintf("Error processing document: %v", err), 0, true
	}

	var text string
	pages := 1
	isError := false

	if strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		text, pages, isError = e.extractPDF(ctx, filePath, content, useHandwritingOCR)
	} else {
		// Treat anything else as plain text
		text = string(bytes.ToValidUTF8(content, nil))
	}

	if strings.TrimSpace(text) == "" {
		text = "No text content found in the document."
		isError = true
	}
	return text, pages, isError
}

// extractPDF walks the document page by page and concatenates page texts with
// newline separators.
func (e *PDFExtractor) extractPDF(ctx context.Context, filePath string, content []byte, useHandwritingOCR bool) (string, int, bool) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return fmt.Sprintf("PDF processing failed: %v. Please upload a text file instead.", err), 0, true
	}

	pages := reader.NumPage()

	if useHandwritingOCR {
		text, ocrErr := e.extractWithOCR(ctx, filePath, pages)
		return text, pages, ocrErr
	}

	var textBuilder strings.Builder
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		pageText, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("Failed to extract text from page", "page", i, "error", err)
			continue
		}

		textBuilder.WriteString(pageText)
		textBuilder.WriteString("\n")
	}

	text := textBuilder.String()
	if strings.TrimSpace(text) == "" {
		// Some PDFs defeat the Go library; poppler handles more encodings
		if popplerText, err := e.extractWithPoppler(ctx, content); err == nil {
			text = popplerText
		} else {
			logger.Debug("pdftotext fallback failed", "error", err)
		}
	}
	return text, pages, false
}

// extractWithOCR rasterizes each page and runs it through the handwriting OCR
// pipeline. Per-page temp images are removed on every exit path; an OCR
// failure on one page skips that page rather than aborting the document.
func (e *PDFExtractor) extractWithOCR(ctx context.Context, filePath string, pages int) (string, bool) {
	pipeline, err := e.ocr(ctx, e.config)
	if err != nil {
		return fmt.Sprintf("Handwriting OCR unavailable: %v. Please retry without handwriting recognition.", err), true
	}

	var pageTexts []string
	for i := 1; i <= pages; i++ {
		pageText, err := e.ocrPage(ctx, pipeline, filePath, i)
		if err != nil {
			logger.Warn("OCR failed for page", "page", i, "error", err)
			continue
		}
		if strings.TrimSpace(pageText) != "" {
			pageTexts = append(pageTexts, pageText)
		}
	}
	return strings.Join(pageTexts, "\n"), false
}

// ocrPage rasterizes a single page to a temp PNG and OCRs it. The temp image
// is removed before returning, on success and on error alike.
func (e *PDFExtractor) ocrPage(ctx context.Context, pipeline *OCRPipeline, filePath string, pageNum int) (string, error) {
	tempDir, err := os.MkdirTemp("", "ragify-page-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	imagePath, err := rasterizePage(ctx, filePath, pageNum, tempDir)
	if err != nil {
		return "", err
	}

	return pipeline.ProcessImage(ctx, imagePath)
}

// rasterizePage renders one PDF page to a PNG using poppler's pdftoppm.
func rasterizePage(ctx context.Context, filePath string, pageNum int, outDir string) (string, error) {
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		return "", fmt.Errorf("pdftoppm not available: %w", err)
	}

	outPrefix := filepath.Join(outDir, "page_"+strconv.Itoa(pageNum))
	pageArg := strconv.Itoa(pageNum)

	rasterCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	cmd := exec.CommandContext(rasterCtx, "pdftoppm",
		"-png", "-r", "150",
		"-f", pageArg, "-l", pageArg,
		"-singlefile",
		filePath, outPrefix)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("pdftoppm failed: %v, stderr: %s", err, stderr.String())
	}

	imagePath := outPrefix + ".png"
	if _, err := os.Stat(imagePath); err != nil {
		return "", fmt.Errorf("pdftoppm produced no image for page %d: %w", pageNum, err)
	}
	return imagePath, nil
}

// extractWithPoppler uses poppler-utils (pdftotext) for extraction
func (e *PDFExtractor) extractWithPoppler(ctx context.Context, content []byte) (string, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return "", fmt.Errorf("pdftotext not available: %w", err)
	}

	extractCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(extractCtx, "pdftotext", "-layout", "-", "-")
	cmd.Stdin = bytes.NewReader(content)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("pdftotext failed: %v, stderr: %s", err, stderr.String())
	}

	if stdout.Len() == 0 {
		return "", fmt.Errorf("no text extracted by pdftotext")
	}
	return stdout.String(), nil
}

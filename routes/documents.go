package routes

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"ragify-backend/internal/config"
	"ragify-backend/internal/telemetry"
	"ragify-backend/models"
	"ragify-backend/services"
	"ragify-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SetupDocumentRoutes registers the ingestion and query endpoints
func SetupDocumentRoutes(router *gin.Engine, cfg *config.Config, rag *services.RAGService, metrics *telemetry.Metrics) {
	router.POST("/upload", handleUpload(cfg, metrics))
	router.POST("/process", handleProcess(rag, metrics))
	router.POST("/query", handleQuery(rag, metrics))
	router.GET("/status", handleStatus(rag, metrics))
	router.DELETE("/reset", handleReset(rag, metrics))
}

// handleUpload stages a PDF file for processing. Validation failures reject
// the request before anything touches disk.
func handleUpload(cfg *config.Config, metrics *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics.RecordRequest(c.Request.Context(), "upload")

		file, header, err := c.Request.FormFile("file")
		if err != nil {
			utils.RespondWithBadRequest(c, "No file provided", gin.H{"error": err.Error()})
			return
		}
		defer file.Close()

		if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
			utils.RespondWithBadRequest(c, "Only PDF files are supported", nil)
			return
		}

		if header.Size > cfg.MaxFileSize {
			utils.RespondWithBadRequest(c, "File size exceeds maximum limit", gin.H{"max_size": cfg.MaxFileSize})
			return
		}

		// Basic PDF header validation without loading the whole file
		headerBuf := make([]byte, 5)
		if _, err := io.ReadFull(file, headerBuf); err != nil {
			utils.RespondWithBadRequest(c, "Cannot read file header", nil)
			return
		}
		if string(headerBuf[:4]) != "%PDF" {
			utils.RespondWithBadRequest(c, "File does not appear to be a valid PDF", nil)
			return
		}
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			utils.RespondWithInternalError(c, "Failed to reset file for saving", nil)
			return
		}

		if err := os.MkdirAll(cfg.FileStorageDir, 0o755); err != nil {
			utils.RespondWithInternalError(c, "Failed to create upload directory", nil)
			return
		}

		tempPath := filepath.Join(cfg.FileStorageDir, fmt.Sprintf("upload_%s.pdf", uuid.NewString()))
		dst, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to open destination", nil)
			return
		}

		written, err := io.Copy(dst, file)
		closeErr := dst.Close()
		if err != nil || closeErr != nil {
			os.Remove(tempPath)
			utils.RespondWithInternalError(c, "Failed to save uploaded file", nil)
			return
		}

		c.JSON(http.StatusOK, models.UploadResponse{
			Message:  "File uploaded successfully",
			Filename: header.Filename,
			TempPath: tempPath,
			Size:     written,
		})
	}
}

// handleProcess ingests a previously uploaded file into the vector store
func handleProcess(rag *services.RAGService, metrics *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics.RecordRequest(c.Request.Context(), "process")

		var req models.ProcessRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		result, err := rag.ProcessDocument(c.Request.Context(), req.FilePath, req.Filename, req.UseHandwritingOCR)
		if err != nil {
			utils.RespondWithInternalError(c, fmt.Sprintf("Processing failed: %v", err), nil)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// handleQuery answers a question from the ingested documents
func handleQuery(rag *services.RAGService, metrics *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics.RecordRequest(c.Request.Context(), "query")

		var req models.QueryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		result, err := rag.QueryDocuments(c.Request.Context(), req.Query, req.NResults)
		if err != nil {
			utils.RespondWithInternalError(c, fmt.Sprintf("Query failed: %v", err), nil)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// handleStatus reports the database state
func handleStatus(rag *services.RAGService, metrics *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics.RecordRequest(c.Request.Context(), "status")
		c.JSON(http.StatusOK, rag.GetStatus(c.Request.Context()))
	}
}

// handleReset clears the whole vector database
func handleReset(rag *services.RAGService, metrics *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics.RecordRequest(c.Request.Context(), "reset")
		c.JSON(http.StatusOK, rag.ResetDatabase(c.Request.Context()))
	}
}

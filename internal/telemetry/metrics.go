package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCounter    metric.Int64Counter
	PDFProcessingTime metric.Float64Histogram
	ChunksIngested    metric.Int64Counter
	QueriesAnswered   metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("ragify-backend")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	pdfProcessingTime, err := meter.Float64Histogram(
		"document.processing.duration",
		metric.WithDescription("Document ingestion duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	chunksIngested, err := meter.Int64Counter(
		"chunks.ingested.total",
		metric.WithDescription("Total chunks written to the vector store"),
	)
	if err != nil {
		return nil, err
	}

	queriesAnswered, err := meter.Int64Counter(
		"queries.answered.total",
		metric.WithDescription("Total query requests answered"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:    requestCounter,
		PDFProcessingTime: pdfProcessingTime,
		ChunksIngested:    chunksIngested,
		QueriesAnswered:   queriesAnswered,
	}, nil
}

// RecordRequest increments the request counter for an endpoint
func (m *Metrics) RecordRequest(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	m.RequestCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("endpoint", endpoint)))
}

// RecordProcessing records a completed document ingestion
func (m *Metrics) RecordProcessing(ctx context.Context, seconds float64, chunks int, method string) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("method", method))
	m.PDFProcessingTime.Record(ctx, seconds, attrs)
	m.ChunksIngested.Add(ctx, int64(chunks), attrs)
}

// RecordQuery records an answered query
func (m *Metrics) RecordQuery(ctx context.Context, success bool) {
	if m == nil {
		return
	}
	m.QueriesAnswered.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

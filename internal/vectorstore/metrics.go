package vectorstore

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/ragd/internal/vectorstore"

// Metrics holds search-related metrics for the index.
type Metrics struct {
	meter    metric.Meter
	logger   *zap.Logger
	searches metric.Int64Counter
	scanned  metric.Int64Histogram
	errors   metric.Int64Counter
}

// NewMetrics creates a new Metrics instance for the vector index.
func NewMetrics(logger *zap.Logger) *Metrics {
	m := &Metrics{
		meter:  otel.Meter(instrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.searches, err = m.meter.Int64Counter(
		"ragd.vectorstore.searches_total",
		metric.WithDescription("Total similarity searches executed"),
		metric.WithUnit("{search}"),
	)
	if err != nil {
		m.logger.Warn("failed to create searches counter", zap.Error(err))
	}

	m.scanned, err = m.meter.Int64Histogram(
		"ragd.vectorstore.records_scanned",
		metric.WithDescription("Records scanned per brute-force search"),
		metric.WithUnit("{record}"),
		metric.WithExplicitBucketBoundaries(1, 10, 50, 100, 500, 1000, 5000, 10000),
	)
	if err != nil {
		m.logger.Warn("failed to create scanned histogram", zap.Error(err))
	}

	m.errors, err = m.meter.Int64Counter(
		"ragd.vectorstore.errors_total",
		metric.WithDescription("Total search errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		m.logger.Warn("failed to create errors counter", zap.Error(err))
	}
}

// RecordSearch records one search against the index.
func (m *Metrics) RecordSearch(ctx context.Context, indexSize, resultCount int, err error) {
	attrs := []attribute.KeyValue{
		attribute.Int("results", resultCount),
	}

	if m.searches != nil {
		m.searches.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if m.scanned != nil {
		m.scanned.Record(ctx, int64(indexSize))
	}
	if err != nil && m.errors != nil {
		m.errors.Add(ctx, 1)
	}
}

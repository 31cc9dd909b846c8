// Package observability provides OpenTelemetry metrics and the Prometheus
// meter provider for the data-access core.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// QueryMetrics records query-shape metrics for fetch resolution, pagination,
// and blob access.
type QueryMetrics struct {
	queriesIssued    metric.Int64Counter
	rowsScanned      metric.Int64Histogram
	batchParentCount metric.Int64Histogram
	blobBytes        metric.Int64Counter
}

// NewQueryMetrics creates the core's instruments on the given meter.
func NewQueryMetrics(meter metric.Meter) (*QueryMetrics, error) {
	queriesIssued, err := meter.Int64Counter(
		"dataaccess.queries.issued",
		metric.WithDescription("Number of SQL queries issued, by operation"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create queries counter: %w", err)
	}

	rowsScanned, err := meter.Int64Histogram(
		"dataaccess.rows.scanned",
		metric.WithDescription("Rows scanned per query"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rows histogram: %w", err)
	}

	batchParentCount, err := meter.Int64Histogram(
		"dataaccess.batch.parents",
		metric.WithDescription("Distinct parent keys per batched secondary fetch"),
		metric.WithUnit("{parent}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch parents histogram: %w", err)
	}

	blobBytes, err := meter.Int64Counter(
		"dataaccess.blob.bytes",
		metric.WithDescription("Binary payload bytes transferred by the blob gateway"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob bytes counter: %w", err)
	}

	return &QueryMetrics{
		queriesIssued:    queriesIssued,
		rowsScanned:      rowsScanned,
		batchParentCount: batchParentCount,
		blobBytes:        blobBytes,
	}, nil
}

// RecordQuery records one issued query and the rows it returned.
// Safe to call on a nil receiver.
func (m *QueryMetrics) RecordQuery(ctx context.Context, operation, entity string, rows int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("entity", entity),
	)
	m.queriesIssued.Add(ctx, 1, attrs)
	m.rowsScanned.Record(ctx, int64(rows), attrs)
}

// RecordBatch records the parent-key fan-in of one batched secondary fetch.
func (m *QueryMetrics) RecordBatch(ctx context.Context, relation string, parents int) {
	if m == nil {
		return
	}
	m.batchParentCount.Record(ctx, int64(parents), metric.WithAttributes(
		attribute.String("relation", relation),
	))
}

// RecordBlobBytes records payload bytes transferred by the blob gateway.
func (m *QueryMetrics) RecordBlobBytes(ctx context.Context, entity string, bytes int) {
	if m == nil {
		return
	}
	m.blobBytes.Add(ctx, int64(bytes), metric.WithAttributes(
		attribute.String("entity", entity),
	))
}

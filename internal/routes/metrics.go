package routes

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	diffAmount metric.Float64Histogram
	diffRows   metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	diffAmount, err := meter.Float64Histogram("diff_amount",
		metric.WithDescription("Divergence ratio of computed diffs"),
		metric.WithExplicitBucketBoundaries(0, 0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1),
	)
	if err != nil {
		return nil, err
	}
	diffRows, err := meter.Int64Counter("diff_rows_total",
		metric.WithDescription("Aligned image rows by classification"),
	)
	if err != nil {
		return nil, err
	}
	return &Metrics{
		diffAmount: diffAmount,
		diffRows:   diffRows,
	}, nil
}

func (m *Metrics) recordAmount(ctx context.Context, format string, amount float64) {
	if m == nil {
		return
	}
	m.diffAmount.Record(ctx, amount, metric.WithAttributes(attribute.Key("format").String(format)))
}

func (m *Metrics) recordRows(ctx context.Context, rows RowCounts) {
	if m == nil {
		return
	}
	m.diffRows.Add(ctx, int64(rows.Unchanged), metric.WithAttributes(attribute.Key("kind").String("unchanged")))
	m.diffRows.Add(ctx, int64(rows.Removed), metric.WithAttributes(attribute.Key("kind").String("removed")))
	m.diffRows.Add(ctx, int64(rows.Added), metric.WithAttributes(attribute.Key("kind").String("added")))
}

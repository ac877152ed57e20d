// Package metrics counts sync operations, detected drift and transferred
// bytes with OpenTelemetry instruments.
package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Attribute keys.
var (
	AttrOperation = attribute.Key("operation")
	AttrResult    = attribute.Key("result")
	AttrKind      = attribute.Key("kind")
	AttrDirection = attribute.Key("direction")
)

// Drift kinds.
const (
	DriftOrphan    = "orphan"
	DriftMissing   = "missing"
	DriftAmbiguous = "ambiguous"
)

// Transfer directions.
const (
	Upload   = "upload"
	Download = "download"
)

// Metrics is safe for concurrent use. A nil *Metrics records nothing.
type Metrics struct {
	operations metric.Int64Counter
	drift      metric.Int64Counter
	bytes      metric.Int64Counter
}

// New registers the instruments on meter.
func New(meter metric.Meter) *Metrics {
	m := &Metrics{}

	m.operations, _ = meter.Int64Counter("savegamesync.operations",
		metric.WithDescription("Sync and repair operations by outcome"),
		metric.WithUnit("{operation}"))

	m.drift, _ = meter.Int64Counter("savegamesync.drift",
		metric.WithDescription("Index and store divergences found by the reconciler"),
		metric.WithUnit("{item}"))

	m.bytes, _ = meter.Int64Counter("savegamesync.bytes",
		metric.WithDescription("Archive bytes moved to or from the blob store"),
		metric.WithUnit("By"))

	return m
}

// Global uses the process-wide meter provider.
func Global() *Metrics {
	return New(otel.Meter("savegamesync"))
}

// Noop records nothing.
func Noop() *Metrics {
	return New(noop.NewMeterProvider().Meter("savegamesync"))
}

// Operation records one finished operation; err decides the result label.
func (m *Metrics) Operation(ctx context.Context, op string, err error) {
	if m == nil || m.operations == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.operations.Add(ctx, 1, metric.WithAttributes(AttrOperation.String(op), AttrResult.String(result)))
}

// Drift records n divergent items of the given kind.
func (m *Metrics) Drift(ctx context.Context, kind string, n int) {
	if m == nil || m.drift == nil || n <= 0 {
		return
	}
	m.drift.Add(ctx, int64(n), metric.WithAttributes(AttrKind.String(kind)))
}

// Bytes records archive bytes moved in direction.
func (m *Metrics) Bytes(ctx context.Context, direction string, n int64) {
	if m == nil || m.bytes == nil || n <= 0 {
		return
	}
	m.bytes.Add(ctx, n, metric.WithAttributes(AttrDirection.String(direction)))
}

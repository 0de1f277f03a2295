// Package metrics records worktree lifecycle instrumentation through an
// optional OpenTelemetry meter. A nil meter or a failing instrument never
// fails the operation being measured.
package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Recorder wraps an externally supplied meter. The zero value and a nil
// Recorder are both valid no-ops.
type Recorder struct {
	meter metric.Meter

	once      sync.Once
	createDur metric.Float64Histogram
	removeDur metric.Float64Histogram
	active    metric.Int64UpDownCounter
}

// NewRecorder creates a recorder over meter. Pass nil to disable recording.
func NewRecorder(meter metric.Meter) *Recorder {
	return &Recorder{meter: meter}
}

func (r *Recorder) init() {
	r.once.Do(func() {
		r.createDur, _ = r.meter.Float64Histogram(
			"worktree_create_duration_ms",
			metric.WithUnit("ms"),
			metric.WithDescription("Duration of worktree create operations"),
		)
		r.removeDur, _ = r.meter.Float64Histogram(
			"worktree_remove_duration_ms",
			metric.WithUnit("ms"),
			metric.WithDescription("Duration of worktree remove operations"),
		)
		r.active, _ = r.meter.Int64UpDownCounter(
			"worktrees_active",
			metric.WithUnit("1"),
			metric.WithDescription("Number of managed worktrees on disk"),
		)
	})
}

func (r *Recorder) enabled() bool {
	return r != nil && r.meter != nil
}

// RecordCreate records one create duration.
func (r *Recorder) RecordCreate(ctx context.Context, d time.Duration, attrs ...attribute.KeyValue) {
	if !r.enabled() {
		return
	}
	defer func() { _ = recover() }()
	r.init()
	if r.createDur != nil {
		r.createDur.Record(ctx, float64(d)/float64(time.Millisecond), metric.WithAttributes(attrs...))
	}
}

// RecordRemove records one remove duration.
func (r *Recorder) RecordRemove(ctx context.Context, d time.Duration, attrs ...attribute.KeyValue) {
	if !r.enabled() {
		return
	}
	defer func() { _ = recover() }()
	r.init()
	if r.removeDur != nil {
		r.removeDur.Record(ctx, float64(d)/float64(time.Millisecond), metric.WithAttributes(attrs...))
	}
}

// AddActive adjusts the active worktree gauge by delta.
func (r *Recorder) AddActive(ctx context.Context, delta int64, attrs ...attribute.KeyValue) {
	if !r.enabled() {
		return
	}
	defer func() { _ = recover() }()
	r.init()
	if r.active != nil {
		r.active.Add(ctx, delta, metric.WithAttributes(attrs...))
	}
}

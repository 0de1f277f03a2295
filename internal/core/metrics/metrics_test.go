package metrics

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestRecorder_NilMeterIsNoop(t *testing.T) {
	ctx := context.Background()

	r := NewRecorder(nil)
	r.RecordCreate(ctx, time.Second)
	r.RecordRemove(ctx, time.Second)
	r.AddActive(ctx, 1)
}

func TestRecorder_NilRecorderIsNoop(t *testing.T) {
	ctx := context.Background()

	var r *Recorder
	r.RecordCreate(ctx, time.Second)
	r.RecordRemove(ctx, time.Second)
	r.AddActive(ctx, -1)
}

func TestRecorder_RecordsThroughMeter(t *testing.T) {
	ctx := context.Background()

	r := NewRecorder(noop.NewMeterProvider().Meter("test"))
	r.RecordCreate(ctx, 250*time.Millisecond, attribute.Bool("detached", false))
	r.RecordRemove(ctx, 50*time.Millisecond, attribute.Bool("force", true))
	r.AddActive(ctx, 1)
	r.AddActive(ctx, -1)
}

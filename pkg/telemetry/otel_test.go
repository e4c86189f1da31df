package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/daysim/daysim/pkg/config"
	simerrors "github.com/daysim/daysim/pkg/errors"
)

func TestHouseholdSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	p := NewProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))

	ctx, run := p.StartRun(context.Background(), "run-1", 2)
	_, ok := p.StartHousehold(ctx, 7, 0)
	EndHousehold(ok, 3, true, nil)
	_, bad := p.StartHousehold(ctx, 8, 1)
	EndHousehold(bad, 1, false, simerrors.New(simerrors.CodeTour, "boom"))
	run.End()

	spans := recorder.Ended()
	if len(spans) != 3 {
		t.Fatalf("ended %d spans, want 3", len(spans))
	}
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	if attrs["household.id"].AsInt64() != 7 || attrs["attempts"].AsInt64() != 3 || !attrs["valid"].AsBool() {
		t.Errorf("attributes = %v", spans[0].Attributes())
	}
	if spans[1].Status().Code != codes.Error || spans[1].Status().Description != string(simerrors.CodeTour) {
		t.Errorf("status = %+v", spans[1].Status())
	}
	if spans[0].Parent().SpanID() != spans[2].SpanContext().SpanID() {
		t.Error("household span is not a child of the run span")
	}
}

func TestSetupDisabled(t *testing.T) {
	p, err := Setup(context.Background(), config.TelemetryConfig{}, "test")
	if err != nil {
		t.Fatal(err)
	}
	_, span := p.StartHousehold(context.Background(), 1, 0)
	EndHousehold(span, 1, true, nil)
	if span.SpanContext().IsValid() {
		t.Error("disabled telemetry produced a recording span")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{1, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{0.5, "TraceIDRatioBased{0.5}"},
	}
	for _, tt := range tests {
		if got := sampler(tt.ratio).Description(); got != tt.want {
			t.Errorf("sampler(%v) = %q, want %q", tt.ratio, got, tt.want)
		}
	}
}

package opentelemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestMessageHeadersCarrier_Get(t *testing.T) {
	c := MessageHeadersCarrier{
		"string": "value",
		"bytes":  []byte("value"),
		"int":    int32(42),
		"nil":    nil,
	}
	assert.Equal(t, "value", c.Get("string"))
	assert.Equal(t, "value", c.Get("bytes"))
	assert.Equal(t, "42", c.Get("int"))
	assert.Equal(t, "", c.Get("nil"))
	assert.Equal(t, "", c.Get("missing"))
	assert.ElementsMatch(t, []string{"string", "bytes", "int", "nil"}, c.Keys())
}

func TestTraceRoundTrip(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0xde, 0xad, 0xbe, 0xef},
		SpanID:     trace.SpanID{0x01},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	headers := InjectTraceIntoMessageHeader(ctx, nil)
	require.Contains(t, headers, "traceparent")

	extracted := trace.SpanContextFromContext(ExtractTraceFromMessageHeader(context.Background(), headers))
	assert.Equal(t, sc.TraceID(), extracted.TraceID())
	assert.Equal(t, sc.SpanID(), extracted.SpanID())
	assert.True(t, extracted.IsRemote())
}

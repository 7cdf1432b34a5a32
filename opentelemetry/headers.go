// Package opentelemetry carries trace context through AMQP message headers.
package opentelemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
)

// MessageHeadersCarrier adapts AMQP message headers to a propagation.TextMapCarrier.
type MessageHeadersCarrier map[string]interface{}

func (c MessageHeadersCarrier) Get(key string) string {
	v, ok := c[key]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(s)
	}
}

func (c MessageHeadersCarrier) Set(key string, value string) {
	c[key] = value
}

func (c MessageHeadersCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// InjectTraceIntoMessageHeader injects the tracing headers from the context into the header map.
// A nil map is allocated.
func InjectTraceIntoMessageHeader(ctx context.Context, headers map[string]interface{}) map[string]interface{} {
	if headers == nil {
		headers = make(map[string]interface{})
	}
	h := MessageHeadersCarrier(headers)
	otel.GetTextMapPropagator().Inject(ctx, h)
	return h
}

// ExtractTraceFromMessageHeader extracts the tracing from the header and puts it into the context.
func ExtractTraceFromMessageHeader(ctx context.Context, headers map[string]interface{}) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, MessageHeadersCarrier(headers))
}

package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordedSpan(t *testing.T, record func(span sdktrace.ReadWriteSpan)) tracetest.SpanStub {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	_, span := tp.Tracer("test").Start(context.Background(), "op")
	record(span.(sdktrace.ReadWriteSpan))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	return tracetest.SpanStubFromReadOnlySpan(ended[0])
}

func attrValue(attrs []attribute.KeyValue, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range attrs {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestRecordErrorClassifiesAndFails(t *testing.T) {
	tests := []struct {
		name      string
		errorType ErrorType
		want      string
	}{
		{"db", ErrorTypeDB, "db"},
		{"redis", ErrorTypeRedis, "redis"},
		{"rabbitmq", ErrorTypeRabbitMQ, "rabbitmq"},
		{"validation", ErrorTypeValidation, "validation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			boom := errors.New("boom")
			stub := recordedSpan(t, func(span sdktrace.ReadWriteSpan) {
				RecordError(span, boom, tt.errorType)
			})

			assert.Equal(t, codes.Error, stub.Status.Code)
			assert.Equal(t, "boom", stub.Status.Description)
			v, ok := attrValue(stub.Attributes, "error.type")
			require.True(t, ok)
			assert.Equal(t, tt.want, v.AsString())
			v, ok = attrValue(stub.Attributes, "error.message")
			require.True(t, ok)
			assert.Equal(t, "boom", v.AsString())
			// RecordError also attaches the error as a span event.
			require.NotEmpty(t, stub.Events)
		})
	}
}

func TestRecordErrorNilSafe(t *testing.T) {
	stub := recordedSpan(t, func(span sdktrace.ReadWriteSpan) {
		RecordError(span, nil, ErrorTypeDB)
		RecordError(nil, errors.New("dropped"), ErrorTypeDB)
	})

	assert.Equal(t, codes.Unset, stub.Status.Code)
	assert.Empty(t, stub.Events)
}

func TestRecordErrorWithInfoCarriesExtraAttributes(t *testing.T) {
	stub := recordedSpan(t, func(span sdktrace.ReadWriteSpan) {
		RecordErrorWithInfo(span, errors.New("publish failed"), ErrorTypeRabbitMQ,
			attribute.Int64("messaging.message_id", 42))
	})

	assert.Equal(t, codes.Error, stub.Status.Code)
	v, ok := attrValue(stub.Attributes, "messaging.message_id")
	require.True(t, ok)
	assert.Equal(t, int64(42), v.AsInt64())
	v, ok = attrValue(stub.Attributes, "error.type")
	require.True(t, ok)
	assert.Equal(t, "rabbitmq", v.AsString())
}

func TestRecordHTTPErrorCategorizesStatusCode(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		category   string
	}{
		{"client error", 422, "client_error"},
		{"server error", 503, "server_error"},
		{"weird code", 300, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := recordedSpan(t, func(span sdktrace.ReadWriteSpan) {
				RecordHTTPError(span, errors.New("bad response"), tt.statusCode)
			})

			assert.Equal(t, codes.Error, stub.Status.Code)
			v, ok := attrValue(stub.Attributes, "http.status_code")
			require.True(t, ok)
			assert.Equal(t, int64(tt.statusCode), v.AsInt64())
			v, ok = attrValue(stub.Attributes, "error.category")
			require.True(t, ok)
			assert.Equal(t, tt.category, v.AsString())
		})
	}
}

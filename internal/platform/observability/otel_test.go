package observability

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" warning "))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestSettingsFromEnv(t *testing.T) {
	t.Setenv("LOG_FORMAT", "TEXT")
	t.Setenv("OTEL_TRACES_EXPORTER", "Stdout")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "0")

	s := SettingsFromEnv("orders-api")
	assert.True(t, s.LogText)
	assert.Equal(t, ExporterStdout, s.TraceExporter)
	assert.False(t, s.OTLPInsecure)
	assert.Equal(t, "local", s.Environment)
}

func TestNewLogger_TagsService(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Settings{ServiceName: "orders-api", LogOutput: &buf})
	logger.Info("order created")
	assert.Contains(t, buf.String(), `"service":"orders-api"`)
}

func TestInitWithSettings_CollectsMetrics(t *testing.T) {
	var buf bytes.Buffer
	instruments, shutdown, err := InitWithSettings(context.Background(), Settings{
		ServiceName:   "orders-test",
		LogOutput:     &buf,
		TraceExporter: ExporterNone,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	_, span := instruments.Tracer("test").Start(context.Background(), "noop")
	span.End()
	assert.True(t, span.SpanContext().IsValid())

	counter, err := instruments.Meter("test").Int64Counter("orders.test.count")
	require.NoError(t, err)
	counter.Add(context.Background(), 2)

	rm, err := instruments.CollectMetrics(context.Background())
	require.NoError(t, err)
	require.Len(t, rm.ScopeMetrics, 1)
	assert.Equal(t, "orders.test.count", rm.ScopeMetrics[0].Metrics[0].Name)
}

func TestInitWithSettings_RejectsUnknownExporter(t *testing.T) {
	_, _, err := InitWithSettings(context.Background(), Settings{ServiceName: "x", LogOutput: &bytes.Buffer{}, TraceExporter: "zipkin"})
	require.Error(t, err)
}

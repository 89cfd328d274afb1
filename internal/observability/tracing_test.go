package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestInitTracingStdoutExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitTracing(context.Background(), TracingConfig{
		Enabled:     true,
		ServiceName: "planets-test",
		Exporter:    "stdout",
		SampleRatio: 1,
		Writer:      &buf,
	}, nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "Ephemeris/Compute")
	span.End()

	ShutdownWithTimeout(context.Background(), shutdown, nil)
	if !strings.Contains(buf.String(), "Ephemeris/Compute") {
		t.Fatalf("exported spans missing span name: %q", buf.String())
	}

	// Leave the global provider in a neutral state for other tests.
	if _, err := InitTracing(context.Background(), TracingConfig{}, nil); err != nil {
		t.Fatalf("reset tracing: %v", err)
	}
}

func TestInitTracingRejectsUnknownExporter(t *testing.T) {
	_, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Exporter: "zipkin"}, nil)
	if err == nil {
		t.Fatalf("expected unsupported exporter error")
	}
}

func TestTracingConfigFromEnv(t *testing.T) {
	t.Setenv("PLANETS_TRACING_ENABLED", "TRUE")
	t.Setenv("PLANETS_TRACING_EXPORTER", "OTLP")
	t.Setenv("PLANETS_TRACING_SAMPLE_RATIO", "0.25")
	t.Setenv("PLANETS_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("PLANETS_TRACING_SERVICE_NAME", "")

	cfg := TracingConfigFromEnv("planets-cli")
	if !cfg.Enabled || cfg.Exporter != "otlp" || cfg.SampleRatio != 0.25 || cfg.Endpoint != "collector:4317" || cfg.ServiceName != "planets-cli" {
		t.Fatalf("unexpected config %+v", cfg)
	}

	t.Setenv("PLANETS_TRACING_SAMPLE_RATIO", "7")
	if cfg := TracingConfigFromEnv("x"); cfg.SampleRatio != 1 {
		t.Fatalf("out-of-range ratio should fall back to 1, got %v", cfg.SampleRatio)
	}
}

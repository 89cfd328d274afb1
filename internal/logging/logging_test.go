package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestJSONLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "json", Output: &buf})

	log.With(String("component", "ephemeris")).Info(context.Background(), "computed",
		Int("count", 8),
		Float64("longitude", 99.5),
		Err(errors.New("boom")),
	)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "computed" || rec["component"] != "ephemeris" || rec["error"] != "boom" {
		t.Fatalf("unexpected record: %v", rec)
	}
	if rec["count"] != float64(8) || rec["longitude"] != 99.5 {
		t.Fatalf("unexpected numeric fields: %v", rec)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})

	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected output for warn level: %q", out)
	}
}

func TestRequestIDIsAttached(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Format: "json", Output: &buf})

	ctx, id := EnsureRequestID(context.Background())
	if id == "" {
		t.Fatalf("EnsureRequestID returned empty id")
	}
	if again, same := EnsureRequestID(ctx); again != ctx || same != id {
		t.Fatalf("EnsureRequestID should keep an existing id")
	}

	log.Info(ctx, "with id")
	if !strings.Contains(buf.String(), id) {
		t.Fatalf("request id %q missing from %q", id, buf.String())
	}
}

func TestFromContext(t *testing.T) {
	fallback := Noop()
	if got := FromContext(context.Background(), fallback); got != fallback {
		t.Fatalf("FromContext without logger should return fallback")
	}

	var buf bytes.Buffer
	stored := New(Config{Output: &buf})
	ctx := ContextWithLogger(context.Background(), stored)
	FromContext(ctx, fallback).Info(ctx, "stored logger")
	if !strings.Contains(buf.String(), "stored logger") {
		t.Fatalf("FromContext did not return the stored logger")
	}
}

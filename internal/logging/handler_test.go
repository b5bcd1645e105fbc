// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "failed to parse JSON: %s", buf.String())
	return entry
}

func TestSetup_Formats(t *testing.T) {
	tests := []struct {
		format string
		json   bool
	}{
		{format: "json", json: true},
		{format: "", json: true},
		{format: "text", json: false},
	}
	for _, tt := range tests {
		t.Run("format="+tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			Setup("gatehouse", "1.0.0", tt.format, &buf).Info("hello")

			if tt.json {
				entry := decode(t, &buf)
				assert.Equal(t, "hello", entry["msg"])
				assert.Equal(t, "gatehouse", entry["service"])
				assert.Equal(t, "1.0.0", entry["version"])
				return
			}
			assert.Contains(t, buf.String(), "msg=hello")
			assert.Contains(t, buf.String(), "service=gatehouse")
		})
	}
}

func TestSetup_DebugIsFiltered(t *testing.T) {
	var buf bytes.Buffer
	Setup("gatehouse", "1.0.0", "json", &buf).Debug("noise")
	assert.Empty(t, buf.String())
}

func TestHandler_RequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("gatehouse", "1.0.0", "json", &buf)

	ctx := WithRequestID(context.Background(), "01HZXREQ")
	logger.InfoContext(ctx, "request")

	assert.Equal(t, "01HZXREQ", decode(t, &buf)["request_id"])
	assert.Equal(t, "01HZXREQ", RequestID(ctx))
	assert.Empty(t, RequestID(context.Background()))
}

func TestHandler_TraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("gatehouse", "1.0.0", "json", &buf)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	})
	logger.InfoContext(trace.ContextWithSpanContext(context.Background(), spanCtx), "traced")

	entry := decode(t, &buf)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", entry["span_id"])
}

func TestHandler_NoContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	Setup("gatehouse", "1.0.0", "json", &buf).Info("plain")

	entry := decode(t, &buf)
	assert.NotContains(t, entry, "trace_id")
	assert.NotContains(t, entry, "span_id")
	assert.NotContains(t, entry, "request_id")
}

func TestHandler_WithAttrsAndGroupKeepIdentity(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("gatehouse", "1.0.0", "json", &buf).With("component", "web").WithGroup("req")

	logger.Info("grouped", "path", "/characters")

	entry := decode(t, &buf)
	assert.Equal(t, "web", entry["component"])
	assert.Contains(t, entry, "req")
}

func TestSetDefault(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	logger := SetDefault("gatehouse", "2.0.0", "json")
	assert.Same(t, logger, slog.Default())
}

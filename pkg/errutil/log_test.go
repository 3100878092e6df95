// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package errutil_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/libraryhub/libraryhub/internal/logging"
	"github.com/libraryhub/libraryhub/pkg/errutil"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLogError_OopsError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := oops.Code("BOOK_UNAVAILABLE").
		With("book_id", "01J0").
		Hint("wait for a return").
		Errorf("no copy left")

	errutil.LogError(context.Background(), logger, "approve failed", err)

	entry := decode(t, &buf)
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "approve failed", entry["msg"])
	assert.Equal(t, "BOOK_UNAVAILABLE", entry["code"])
	assert.Equal(t, "wait for a return", entry["hint"])
	assert.Equal(t, map[string]any{"book_id": "01J0"}, entry["context"])
}

func TestLogError_StandardError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	errutil.LogError(context.Background(), logger, "operation failed", errors.New("standard error"))

	entry := decode(t, &buf)
	assert.Equal(t, "ERROR", entry["level"])
	assert.Contains(t, entry["error"], "standard error")
	assert.NotContains(t, entry, "code")
}

func TestLogError_CarriesTraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Service: "libraryhub"}, &buf)
	require.NoError(t, err)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(),
		trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID}))

	errutil.LogError(ctx, logger, "command failed", oops.Code("INVALID_TRANSITION").Errorf("cannot approve"))

	entry := decode(t, &buf)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", entry["span_id"])
	assert.Equal(t, "INVALID_TRANSITION", entry["code"])
}

func TestLogError_NilLoggerUsesDefault(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	errutil.LogError(context.Background(), nil, "fallback", errors.New("boom"))

	assert.Equal(t, "fallback", decode(t, &buf)["msg"])
}

package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestContextFieldsAccumulate(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: zerolog.DebugLevel, Output: buf, Format: "json"})

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithPaymentRef(ctx, "SPD-ABC")
	ctx = log.WithFields(ctx, map[string]any{"order_count": 2})
	log.Error(ctx, "verify failed", errors.New("gateway timeout"))

	entry := lastEntry(t, buf)
	assert.Equal(t, "test", entry["service"])
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, "SPD-ABC", entry["payment_ref"])
	assert.EqualValues(t, 2, entry["order_count"])
	assert.Equal(t, "gateway timeout", entry["error"])
	assert.NotEmpty(t, entry["stack"])
}

func TestParentContextIsUntouched(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf, Format: "json"})

	parent := log.WithUserID(context.Background(), "u-1")
	_ = log.WithActorRole(parent, "admin")
	log.Info(parent, "hello")

	entry := lastEntry(t, buf)
	assert.Equal(t, "u-1", entry["user_id"])
	assert.NotContains(t, entry, "actor_role")
}

func TestWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{ServiceName: "test", Output: buf, WarnStack: true, Format: "json"}).Warn(context.Background(), "warny")
	assert.Contains(t, lastEntry(t, buf), "stack")

	buf.Reset()
	New(Options{ServiceName: "test", Output: buf, Format: "json"}).Warn(context.Background(), "warny")
	assert.NotContains(t, lastEntry(t, buf), "stack")
}

func TestLevelFilters(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: zerolog.WarnLevel, Output: buf, Format: "json"})
	log.Info(context.Background(), "dropped")
	assert.Zero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("invalid"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
}

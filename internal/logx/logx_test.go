package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestNewJSON_LevelsAndFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewJSON(&buf, slog.LevelInfo).With(String("service", "svc"))

	l.Debug("hidden")
	l.Info("collected", String("delivery_id", "d1"), Int("count", 2))
	l.Warn("slow", Duration("took", time.Second))
	l.Error("failed", Err(errors.New("boom")), Bool("retry", false))
	require.NoError(t, l.Sync())

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)

	require.Equal(t, "INFO", lines[0]["level"])
	require.Equal(t, "collected", lines[0]["msg"])
	require.Equal(t, "svc", lines[0]["service"])
	require.Equal(t, "d1", lines[0]["delivery_id"])
	require.EqualValues(t, 2, lines[0]["count"])

	require.Equal(t, "WARN", lines[1]["level"])
	require.Equal(t, "svc", lines[1]["service"])

	require.Equal(t, "ERROR", lines[2]["level"])
	require.Equal(t, "boom", lines[2]["error"])
	require.Equal(t, false, lines[2]["retry"])
}

func TestNewJSON_DebugLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewJSON(&buf, slog.LevelDebug).Debug("visible", Float64("lat", 14.5))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	require.Equal(t, 14.5, lines[0]["lat"])
}

func TestErr_Nil(t *testing.T) {
	t.Parallel()

	require.Equal(t, Field{Key: "error", Value: ""}, Err(nil))
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"info":    slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	require.Error(t, err)
}

// Nop ничего не пишет, но With должен вернуть рабочий логгер
func TestNop(t *testing.T) {
	t.Parallel()

	l := Nop().With(String("k", "v"))
	l.Info("i")
	l.Error("e", Any("x", struct{}{}))
	require.NoError(t, l.Sync())
}

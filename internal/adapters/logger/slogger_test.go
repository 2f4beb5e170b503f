package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"Error":   LevelError,
		"bogus":   LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestSlogLogger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogLoggerTo(&buf, LevelWarn, FormatText)

	l.Info(context.Background(), "hidden")
	l.Warn(context.Background(), "shown", map[string]interface{}{"symbol": "SPY"})

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "symbol=SPY")
}

func TestSlogLogger_JSONIncludesError(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogLoggerTo(&buf, LevelDebug, FormatJSON)

	l.Error(context.Background(), errors.New("boom"), "fetch failed", map[string]interface{}{"attempt": 2})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "fetch failed", entry["msg"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, float64(2), entry["attempt"])
	assert.Equal(t, "ERROR", entry["level"])
}

package logger

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestZerologAdapterTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerolog(&buf, zerolog.InfoLevel)

	log.Info("post-processor", "derivation complete", map[string]interface{}{
		"size": "64x48",
	})

	out := buf.String()
	require.Contains(t, out, `"component":"post-processor"`)
	require.Contains(t, out, `"size":"64x48"`)
	require.Contains(t, out, "derivation complete")
}

func TestZerologAdapterLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerolog(&buf, zerolog.WarnLevel)

	log.Debug("backend", "scratch reused", nil)
	log.Info("backend", "flow complete", nil)
	require.Empty(t, buf.String())

	log.Warning("backend", "frame shape changed", nil)
	require.Contains(t, buf.String(), "frame shape changed")
}

func TestZerologAdapterError(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerolog(&buf, zerolog.ErrorLevel)

	log.Error("backend", errors.New("empty flow Mat"), nil)

	out := buf.String()
	require.Contains(t, out, `"error":"empty flow Mat"`)
	require.Contains(t, out, "operation failed")
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	require.Equal(t, zerolog.WarnLevel, ParseLevel("warn"))
	require.Equal(t, zerolog.InfoLevel, ParseLevel("not-a-level"))
	require.Equal(t, zerolog.InfoLevel, ParseLevel(""))
}

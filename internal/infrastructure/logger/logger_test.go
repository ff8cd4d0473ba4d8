package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeKVs(t *testing.T) {
	got := sanitizeKVs([]any{"case_id", "c-1", "session_token", "abc", "API_KEY", "k", "dangling"})
	assert.Equal(t, []any{"case_id", "c-1", "session_token", "[REDACTED]", "API_KEY", "[REDACTED]", "dangling"}, got)
}

func TestLogger_WithRedacts(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := &Logger{SugaredLogger: zap.New(core).Sugar()}

	log.With("cookie", "secret-value").Info("fetched", "folio", 12)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "[REDACTED]", fields["cookie"])
	assert.EqualValues(t, 12, fields["folio"])
}

func TestNew(t *testing.T) {
	for _, mode := range []string{"dev", "prod", ""} {
		log, err := New(mode)
		require.NoError(t, err)
		assert.NotNil(t, log)
	}
	Nop().Info("discarded")
}

package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitFallsBackToInfoOnUnknownLevel(t *testing.T) {
	t.Cleanup(func() { Set(nil) })

	require.NoError(t, Init("not-a-level", "production"))
	assert.True(t, Logger().Core().Enabled(zap.InfoLevel))
	assert.False(t, Logger().Core().Enabled(zap.DebugLevel))
}

func TestInitHonoursDebugLevel(t *testing.T) {
	t.Cleanup(func() { Set(nil) })

	require.NoError(t, Init("debug", "development"))
	assert.True(t, Logger().Core().Enabled(zap.DebugLevel))
}

func TestWithModuleAddsField(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	Set(zap.New(core))
	t.Cleanup(func() { Set(nil) })

	WithModule("scheduler").Info("armed")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "armed", entries[0].Message)
	assert.Equal(t, "scheduler", entries[0].ContextMap()["module"])
}

func TestSetNilInstallsNop(t *testing.T) {
	Set(nil)
	assert.NotNil(t, Logger())
	assert.NotPanics(t, func() { Logger().Info("ignored") })
}

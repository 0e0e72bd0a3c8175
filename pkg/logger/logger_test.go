package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitConfiguresGlobalLogger(t *testing.T) {
	restore := Replace(zap.NewNop())
	t.Cleanup(restore)

	require.NoError(t, Init("debug", "json"))
	require.True(t, Logger().Core().Enabled(zap.DebugLevel))

	require.NoError(t, Init("not-a-level", "console"))
	require.False(t, Logger().Core().Enabled(zap.DebugLevel))
	require.True(t, Logger().Core().Enabled(zap.InfoLevel))
}

func TestLoggingHelpersEmitEntries(t *testing.T) {
	core, recorded := observer.New(zap.DebugLevel)
	t.Cleanup(Replace(zap.New(core)))

	Info("info message", zap.String("k", "v"))
	Error("error message")
	Warn("warn message")

	entries := recorded.All()
	require.Len(t, entries, 3)
	require.Equal(t, "info message", entries[0].Message)
	require.Equal(t, "v", entries[0].ContextMap()["k"])
	require.Equal(t, "error message", entries[1].Message)
	require.Equal(t, "warn message", entries[2].Message)
}

func TestWithModuleAttachesModuleField(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	t.Cleanup(Replace(zap.New(core)))

	WithModule("scheduler").Info("tick")

	entries := recorded.All()
	require.Len(t, entries, 1)
	require.Equal(t, "scheduler", entries[0].ContextMap()["module"])
}

func TestReplaceRestoresPrevious(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	restoreOuter := Replace(zap.New(core))
	defer restoreOuter()

	restoreInner := Replace(nil)
	Info("dropped")
	restoreInner()
	Info("kept")

	require.Equal(t, 1, recorded.Len())
	require.Equal(t, "kept", recorded.All()[0].Message)
}

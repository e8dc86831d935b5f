package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitConfiguresGlobalLogger(t *testing.T) {
	t.Cleanup(func() { Replace(nil) })

	require.NoError(t, Init("debug"))
	require.True(t, Logger().Core().Enabled(zap.DebugLevel))

	require.NoError(t, Init("not-a-level"))
	require.False(t, Logger().Core().Enabled(zap.DebugLevel))
	require.True(t, Logger().Core().Enabled(zap.InfoLevel))
}

func TestInitOptions(t *testing.T) {
	t.Cleanup(func() { Replace(nil) })

	var cfg zap.Config
	WithConsole()(&cfg)
	WithFields(map[string]any{"service": "themanager"})(&cfg)
	require.Equal(t, "console", cfg.Encoding)
	require.Equal(t, "themanager", cfg.InitialFields["service"])

	require.NoError(t, Init("", WithConsole(), WithFields(map[string]any{"service": "themanager"})))
	require.True(t, Logger().Core().Enabled(zap.InfoLevel))
	require.False(t, Logger().Core().Enabled(zap.DebugLevel))
}

func TestLoggingHelpersEmitEntries(t *testing.T) {
	core, recorded := observer.New(zap.DebugLevel)
	t.Cleanup(func() { Replace(nil) })
	Replace(zap.New(core))

	Info("info message", zap.String("k", "v"))
	Error("error message")
	Warn("warn message")
	Debug("debug message")

	entries := recorded.All()
	require.Len(t, entries, 4)
	require.Equal(t, "info message", entries[0].Message)
	require.Equal(t, "debug message", entries[3].Message)
	require.Equal(t, "v", entries[0].ContextMap()["k"])
}

func TestWithModuleAttachesModuleField(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	t.Cleanup(func() { Replace(nil) })
	Replace(zap.New(core))

	WithModule("reconcile").Info("module test")

	entries := recorded.All()
	require.Len(t, entries, 1)
	require.Equal(t, "reconcile", entries[0].ContextMap()["module"])
}

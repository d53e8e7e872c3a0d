package config_test

import (
	"testing"
	"time"

	"github.com/gdumair1-a11y/EchoSave/internal/config"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	require.Equal(t, 30*time.Minute, cfg.Window())
	require.Equal(t, time.Second, cfg.ChunkInterval())
	require.Equal(t, 16000, cfg.SampleRate)
	require.Equal(t, 24000, cfg.PlaybackRate)
	require.Equal(t, 60*time.Second, cfg.AnalysisDeadline())
	require.Equal(t, 8000, cfg.TranscriptMaxBytes)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("WINDOW_MINUTES", "10")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 10*time.Minute, cfg.Window())
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_RejectsNonPositiveWindow(t *testing.T) {
	t.Setenv("WINDOW_MINUTES", "0")

	_, err := config.LoadConfig()
	require.Error(t, err)
}

package server

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Doaky/pi-alarm-block/internal/config"
)

// TestLoadConfig_Defaults verifies running without a config file works.
func TestLoadConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := loadConfig(&Options{})
	require.NoError(t, err)
	require.Equal(t, config.DefaultListenAddress, cfg.ListenAddress)
	require.NotEmpty(t, cfg.DataDir)
}

// TestLoadConfig_Overrides verifies command-line options win over the file.
func TestLoadConfig_Overrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "alarm-block.yaml")

	require.NoError(t, config.Save(path, &config.Config{
		ListenAddress: "127.0.0.1:8000",
		DataDir:       filepath.Join(dir, "data"),
		SoundsDir:     filepath.Join(dir, "sounds"),
	}))

	cfg, err := loadConfig(&Options{
		ConfigPath:    path,
		ListenAddress: "127.0.0.1:9000",
		DataDir:       filepath.Join(dir, "elsewhere"),
	})
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", cfg.ListenAddress)
	require.Equal(t, filepath.Join(dir, "elsewhere"), cfg.DataDir)
	require.Equal(t, filepath.Join(dir, "sounds"), cfg.SoundsDir)
}

// TestLoadConfig_MissingFile verifies a bad path is an error, not a
// silent fallback.
func TestLoadConfig_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := loadConfig(&Options{ConfigPath: filepath.Join(t.TempDir(), "nope.yaml")})
	require.Error(t, err)
}

// TestSetupLogging_BadLevel verifies unknown levels are rejected.
func TestSetupLogging_BadLevel(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{LogLevel: "loud"}
	require.Error(t, setupLogging(cfg))
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields and default filling.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Missing data dir.
	cfg := &Config{SoundsDir: "/srv/sounds"}
	require.Error(t, Validate(cfg))

	// Missing sounds dir.
	cfg = &Config{DataDir: "/srv/data"}
	require.Error(t, Validate(cfg))

	// Bad listen address.
	cfg = &Config{
		ListenAddress: "bad:address",
		DataDir:       "/srv/data",
		SoundsDir:     "/srv/sounds",
	}
	require.Error(t, Validate(cfg))

	// Unknown hardware mode.
	cfg = &Config{
		DataDir:      "/srv/data",
		SoundsDir:    "/srv/sounds",
		HardwareMode: "gpio",
	}
	require.Error(t, Validate(cfg))

	// Minimal config gets defaults filled in.
	cfg = &Config{
		DataDir:   "/srv/data",
		SoundsDir: "/srv/sounds",
	}
	require.NoError(t, Validate(cfg))
	require.Equal(t, DefaultListenAddress, cfg.ListenAddress)
	require.Equal(t, DefaultLogLevel, cfg.LogLevel)
	require.Equal(t, DefaultWhiteNoiseFile, cfg.WhiteNoiseFile)
	require.Equal(t, HardwareSim, cfg.HardwareMode)

	// Evdev mode defaults the device globs.
	cfg = &Config{
		DataDir:      "/srv/data",
		SoundsDir:    "/srv/sounds",
		HardwareMode: HardwareEvdev,
	}
	require.NoError(t, Validate(cfg))
	require.Equal(t, []string{DefaultInputDeviceGlob}, cfg.InputDevices)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "alarm-block.yaml")

	cfg := &Config{
		ListenAddress: "127.0.0.1:8000",
		DataDir:       filepath.Join(dir, "data"),
		SoundsDir:     filepath.Join(dir, "sounds"),
		LogLevel:      "debug",
		HardwareMode:  HardwareEvdev,
		InputDevices:  []string{"/dev/input/event7"},
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.ListenAddress, loaded.ListenAddress)
	require.Equal(t, cfg.DataDir, loaded.DataDir)
	require.Equal(t, cfg.InputDevices, loaded.InputDevices)

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)
}

// TestDerivedPaths checks the store paths built from the data dir.
func TestDerivedPaths(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		DataDir:        "/srv/data",
		SoundsDir:      "/srv/sounds",
		WhiteNoiseFile: "rain.ogg",
	}

	require.Equal(t, filepath.Join("/srv/data", "alarms.json"), cfg.AlarmsFile())
	require.Equal(t, filepath.Join("/srv/data", "settings.json"), cfg.SettingsFile())
	require.Equal(t, filepath.Join("/srv/sounds", "rain.ogg"), cfg.WhiteNoisePath())
}

// TestDefault sanity-checks the generated default configuration.
func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, Validate(cfg))
	require.NotEmpty(t, cfg.DataDir)
	require.NotEmpty(t, cfg.SoundsDir)
	require.NotEmpty(t, cfg.LogFile)
}

package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Hardware input modes.
const (
	// HardwareSim runs without physical controls.
	HardwareSim = "sim"
	// HardwareEvdev reads the front panel from Linux input devices.
	HardwareEvdev = "evdev"
)

// Config holds the service settings.
type Config struct {
	// ListenAddress is the HTTP listen address for the API and frontend.
	ListenAddress string `yaml:"listen_addr"`
	// DataDir stores the alarm and settings JSON files.
	DataDir string `yaml:"data_dir"`
	// SoundsDir holds the alarm tracks (under alarms/) and the white
	// noise file.
	SoundsDir string `yaml:"sounds_dir"`
	// WhiteNoiseFile is the white noise filename inside SoundsDir.
	WhiteNoiseFile string `yaml:"white_noise_file"`
	// FrontendDir serves static frontend files when non-empty.
	FrontendDir string `yaml:"frontend_dir"`
	// LogLevel is one of debug, info, warn, error, fatal.
	LogLevel string `yaml:"log_level"`
	// LogFile duplicates log output to a file when non-empty. The log
	// API endpoint reads from it.
	LogFile string `yaml:"log_file"`
	// HardwareMode selects the panel input backend, sim or evdev.
	HardwareMode string `yaml:"hardware_mode"`
	// InputDevices are the evdev device globs read in evdev mode.
	InputDevices []string `yaml:"input_devices"`
}

const (
	// DefaultConfigFilename is the default settings file location.
	DefaultConfigFilename = "alarm-block.yaml"

	// DefaultListenAddress serves the API on every interface.
	DefaultListenAddress = "0.0.0.0:8000"

	// DefaultLogLevel is used when the settings omit one.
	DefaultLogLevel = "info"

	// DefaultWhiteNoiseFile is the white noise filename.
	DefaultWhiteNoiseFile = "white_noise.ogg"

	// DefaultFilePermissions is the permission applied to written settings.
	DefaultFilePermissions = 0o600
)

// Filenames stored under DataDir.
const (
	alarmsFilename   = "alarms.json"
	settingsFilename = "settings.json"
)

// DefaultInputDeviceGlob matches the panel devices registered by the
// device tree overlay.
const DefaultInputDeviceGlob = "/dev/input/by-path/platform-alarm-block*-event*"

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errDataDirRequired is returned when the data directory is missing.
	errDataDirRequired = errors.New("data directory must be provided")
	// errSoundsDirRequired is returned when the sounds directory is missing.
	errSoundsDirRequired = errors.New("sounds directory must be provided")
	// errUnknownHardwareMode is returned for an unrecognized hardware mode.
	errUnknownHardwareMode = errors.New("hardware mode must be sim or evdev")
)

// Load reads configuration from the provided path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and fills defaults in place.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.ListenAddress); err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}

	if cfg.DataDir == "" {
		return errDataDirRequired
	}

	if cfg.SoundsDir == "" {
		return errSoundsDirRequired
	}

	if cfg.WhiteNoiseFile == "" {
		cfg.WhiteNoiseFile = DefaultWhiteNoiseFile
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	switch cfg.HardwareMode {
	case "":
		cfg.HardwareMode = HardwareSim
	case HardwareSim, HardwareEvdev:
	default:
		return fmt.Errorf("%q: %w", cfg.HardwareMode, errUnknownHardwareMode)
	}

	if cfg.HardwareMode == HardwareEvdev && len(cfg.InputDevices) == 0 {
		cfg.InputDevices = []string{DefaultInputDeviceGlob}
	}

	return nil
}

// Default returns a configuration rooted in the user's home directory,
// matching the paths the installer lays out.
func Default() *Config {
	base := "."
	if home, err := os.UserHomeDir(); err == nil {
		base = home
	}

	share := filepath.Join(base, ".local", "share", "alarm-block")

	return &Config{
		ListenAddress:  DefaultListenAddress,
		DataDir:        filepath.Join(share, "data"),
		SoundsDir:      filepath.Join(share, "sounds"),
		WhiteNoiseFile: DefaultWhiteNoiseFile,
		FrontendDir:    filepath.Join(share, "frontend"),
		LogLevel:       DefaultLogLevel,
		LogFile:        filepath.Join(base, ".local", "log", "alarm-block", "alarm-block.log"),
		HardwareMode:   HardwareSim,
	}
}

// AlarmsFile returns the alarm store path under the data directory.
func (c *Config) AlarmsFile() string {
	return filepath.Join(c.DataDir, alarmsFilename)
}

// SettingsFile returns the settings store path under the data directory.
func (c *Config) SettingsFile() string {
	return filepath.Join(c.DataDir, settingsFilename)
}

// WhiteNoisePath returns the full path of the white noise track.
func (c *Config) WhiteNoisePath() string {
	return filepath.Join(c.SoundsDir, c.WhiteNoiseFile)
}

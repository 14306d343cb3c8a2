package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	domain "github.com/Doaky/pi-alarm-block/internal/domain/alarm"
	"github.com/Doaky/pi-alarm-block/internal/logger"
)

// Provider exposes the mutable global state the core reads at trigger and
// playback time. Implementations must be safe for concurrent use.
type Provider interface {
	// Schedule returns the active global schedule selector.
	Schedule() domain.Schedule
	// SetSchedule selects the active global schedule.
	SetSchedule(ctx context.Context, s domain.Schedule) error
	// Volume returns the persisted ambient volume (0-100).
	Volume() int
	// SetVolume persists a new ambient volume.
	SetVolume(ctx context.Context, v int) error
	// AlarmVolume returns the persisted alarm volume (0-100).
	AlarmVolume() int
	// SetAlarmVolume persists a new alarm volume.
	SetAlarmVolume(ctx context.Context, v int) error
}

// Default values applied when no settings file exists yet.
const (
	DefaultVolume      = 25
	DefaultAlarmVolume = 75
)

// persistedSettings is the on-disk JSON shape.
type persistedSettings struct {
	Schedule    domain.Schedule `json:"schedule"`
	Volume      int             `json:"volume"`
	AlarmVolume int             `json:"alarm_volume"`
}

// defaultSettings returns the values used for a fresh or unreadable file.
func defaultSettings() persistedSettings {
	return persistedSettings{
		Schedule:    domain.ScheduleA,
		Volume:      DefaultVolume,
		AlarmVolume: DefaultAlarmVolume,
	}
}

// Store is a file-backed Provider. Values live in memory and every mutation
// is written back; a failed write is logged and the in-memory value remains
// authoritative until the next successful save.
type Store struct {
	// path is the filesystem location of the settings JSON file.
	path string
	// mu protects the current settings values.
	mu sync.RWMutex
	// current holds the active settings values.
	current persistedSettings
}

const defaultFilePermissions = 0o600

// NewStore loads (or defaults) the settings at the provided path.
func NewStore(ctx context.Context, path string) *Store {
	s := &Store{
		path:    filepath.Clean(path),
		current: defaultSettings(),
	}

	s.load(ctx)

	return s
}

// load reads the settings file, keeping defaults on any failure.
func (s *Store) load(ctx context.Context) {
	contents, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.WarnKV(ctx, "Failed to read settings file, using defaults", "path", s.path, "error", err)
		}

		return
	}

	var loaded persistedSettings
	if err = json.Unmarshal(contents, &loaded); err != nil {
		logger.WarnKV(ctx, "Failed to decode settings file, using defaults", "path", s.path, "error", err)

		return
	}

	if !loaded.Schedule.ValidGlobal() {
		logger.WarnKV(ctx, "Settings file has unknown schedule, using default", "schedule", loaded.Schedule)
		loaded.Schedule = domain.ScheduleA
	}

	if loaded.Volume < 0 || loaded.Volume > 100 {
		loaded.Volume = DefaultVolume
	}

	if loaded.AlarmVolume < 0 || loaded.AlarmVolume > 100 {
		loaded.AlarmVolume = DefaultAlarmVolume
	}

	s.current = loaded
	logger.InfoKV(ctx, "Loaded settings", "schedule", loaded.Schedule, "volume", loaded.Volume, "alarm_volume", loaded.AlarmVolume)
}

// save writes the current values to disk. Caller must hold s.mu.
func (s *Store) save(ctx context.Context) {
	data, err := json.MarshalIndent(s.current, "", "  ")
	if err != nil {
		logger.ErrorKV(ctx, "Failed to encode settings", "error", err)

		return
	}

	tmp := s.path + ".tmp"
	if err = os.WriteFile(tmp, data, defaultFilePermissions); err != nil {
		logger.ErrorKV(ctx, "Failed to write settings file", "path", s.path, "error", err)

		return
	}

	if err = os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		logger.ErrorKV(ctx, "Failed to replace settings file", "path", s.path, "error", err)
	}
}

// Schedule returns the active global schedule selector.
func (s *Store) Schedule() domain.Schedule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current.Schedule
}

// SetSchedule selects the active global schedule and persists it.
func (s *Store) SetSchedule(ctx context.Context, schedule domain.Schedule) error {
	if !schedule.ValidGlobal() {
		return domain.NewValidationError("schedule",
			fmt.Sprintf("must be %q, %q or %q, got %q", domain.ScheduleA, domain.ScheduleB, domain.ScheduleOff, schedule))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current.Schedule = schedule
	s.save(ctx)

	logger.InfoKV(ctx, "Schedule updated", "schedule", schedule)

	return nil
}

// Volume returns the persisted ambient volume.
func (s *Store) Volume() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current.Volume
}

// SetVolume persists a new ambient volume.
func (s *Store) SetVolume(ctx context.Context, v int) error {
	if v < 0 || v > 100 {
		return domain.NewValidationError("volume", fmt.Sprintf("must be between 0 and 100, got %d", v))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current.Volume = v
	s.save(ctx)

	return nil
}

// AlarmVolume returns the persisted alarm volume.
func (s *Store) AlarmVolume() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current.AlarmVolume
}

// SetAlarmVolume persists a new alarm volume.
func (s *Store) SetAlarmVolume(ctx context.Context, v int) error {
	if v < 0 || v > 100 {
		return domain.NewValidationError("alarm_volume", fmt.Sprintf("must be between 0 and 100, got %d", v))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current.AlarmVolume = v
	s.save(ctx)

	return nil
}

package audio

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	domain "github.com/Doaky/pi-alarm-block/internal/domain/alarm"
	"github.com/Doaky/pi-alarm-block/internal/logger"
	"github.com/Doaky/pi-alarm-block/internal/notify"
	"github.com/Doaky/pi-alarm-block/internal/repository/settings"
)

// duckedAmbientCeiling is the highest volume the ambient channel may hold
// while an alarm is ringing.
const duckedAmbientCeiling = 20

// Coordinator owns the alarm and ambient playback channels, tracks their
// independent volumes and enforces the ducking protocol between them.
//
// All mutating operations are guarded by one coordinator-wide lock; channel
// handles are only published to state after playback has started, under that
// lock, so a concurrent stop always sees the most recently started channel.
// Notifications are emitted after the mutation commits, outside the lock.
type Coordinator struct {
	// source provides the loadable looping audio assets.
	source SoundSource
	// provider persists volume levels across restarts.
	provider settings.Provider
	// sink receives status and volume notifications.
	sink notify.Sink

	// randIndex picks an alarm track; injectable for deterministic tests.
	randIndex func(n int) int

	// mu guards every field below.
	mu sync.Mutex
	// alarmChannel is the live alarm playback handle, nil when idle.
	alarmChannel Channel
	// ambientChannel is the live ambient playback handle, nil when idle.
	ambientChannel Channel
	// alarmPlaying and ambientPlaying are the per-channel states.
	alarmPlaying   bool
	ambientPlaying bool
	// ambientVolume and alarmVolume are the requested levels (0-100).
	ambientVolume int
	alarmVolume   int
	// preAlarmAmbient snapshots the ambient volume to restore after an alarm.
	preAlarmAmbient int
}

// NewCoordinator builds a coordinator with volumes loaded from the provider.
func NewCoordinator(source SoundSource, provider settings.Provider, sink notify.Sink) *Coordinator {
	return &Coordinator{
		source:        source,
		provider:      provider,
		sink:          sink,
		randIndex:     rand.Intn,
		ambientVolume: provider.Volume(),
		alarmVolume:   provider.AlarmVolume(),
	}
}

// PlayAlarm starts (or restarts) looped alarm playback with a uniformly
// random track from the pool, ducking ambient sound first. It reports
// whether playback is running; channel exhaustion is a false return and a
// warning, never an error.
func (c *Coordinator) PlayAlarm(ctx context.Context) bool {
	keys := c.source.AlarmSounds()
	if len(keys) == 0 {
		logger.Warn(ctx, "No alarm sounds loaded, cannot play alarm")

		return false
	}

	key := keys[c.randIndex(len(keys))]

	c.mu.Lock()

	wasPlaying := c.alarmPlaying
	if wasPlaying {
		// Restart: release the old channel, pick the new sound below.
		c.alarmChannel.Stop()
		c.alarmChannel = nil
		c.alarmPlaying = false
	}

	if c.ambientPlaying {
		if !wasPlaying {
			c.preAlarmAmbient = c.ambientVolume
		}

		c.ambientChannel.SetVolume(ducked(c.ambientVolume))
	}

	channel, err := c.source.Play(key, c.alarmVolume)
	if err != nil {
		// Undo the duck so ambient sound is not left attenuated.
		if c.ambientPlaying {
			c.ambientChannel.SetVolume(c.preAlarmAmbient)
		}
		c.mu.Unlock()

		logger.WarnKV(ctx, "Failed to start alarm playback", "sound", key, "error", err)

		// A failed restart is a playing-to-idle edge.
		if wasPlaying {
			c.sink.NotifyAlarmStatus(false)
		}

		return false
	}

	c.alarmChannel = channel
	c.alarmPlaying = true
	c.mu.Unlock()

	logger.InfoKV(ctx, "Alarm playing", "sound", key)

	if !wasPlaying {
		c.sink.NotifyAlarmStatus(true)
	}

	return true
}

// StopAlarm stops alarm playback and restores ambient sound to its
// snapshotted pre-alarm volume. Stopping an idle alarm is a no-op and emits
// no notification.
func (c *Coordinator) StopAlarm(ctx context.Context) {
	c.mu.Lock()

	if !c.alarmPlaying {
		c.mu.Unlock()

		return
	}

	c.alarmChannel.Stop()
	c.alarmChannel = nil
	c.alarmPlaying = false

	if c.ambientPlaying {
		c.ambientVolume = c.preAlarmAmbient
		c.ambientChannel.SetVolume(c.preAlarmAmbient)
	}

	c.mu.Unlock()

	logger.Info(ctx, "Alarm stopped")
	c.sink.NotifyAlarmStatus(false)
}

// PlayAmbient starts looped ambient playback, honoring the ducked ceiling
// while an alarm rings. It reports whether playback is running.
func (c *Coordinator) PlayAmbient(ctx context.Context) bool {
	c.mu.Lock()
	ok, notifyStarted := c.playAmbientLocked(ctx)
	c.mu.Unlock()

	if notifyStarted {
		c.sink.NotifyAmbientStatus(true)
	}

	return ok
}

// playAmbientLocked starts the ambient channel. Caller holds c.mu.
// The second return value reports an idle-to-playing edge.
func (c *Coordinator) playAmbientLocked(ctx context.Context) (ok, started bool) {
	key, available := c.source.AmbientSound()
	if !available {
		logger.Warn(ctx, "No ambient sound loaded, cannot play")

		return false, false
	}

	wasPlaying := c.ambientPlaying
	if wasPlaying {
		c.ambientChannel.Stop()
		c.ambientChannel = nil
		c.ambientPlaying = false
	}

	applied := c.ambientVolume
	if c.alarmPlaying {
		c.preAlarmAmbient = c.ambientVolume
		applied = ducked(c.ambientVolume)
	}

	channel, err := c.source.Play(key, applied)
	if err != nil {
		logger.WarnKV(ctx, "Failed to start ambient playback", "sound", key, "error", err)

		return false, false
	}

	c.ambientChannel = channel
	c.ambientPlaying = true

	logger.Info(ctx, "Ambient sound playing")

	return true, !wasPlaying
}

// StopAmbient stops ambient playback. Stopping an idle channel is a no-op.
func (c *Coordinator) StopAmbient(ctx context.Context) {
	c.mu.Lock()
	stopped := c.stopAmbientLocked(ctx)
	c.mu.Unlock()

	if stopped {
		c.sink.NotifyAmbientStatus(false)
	}
}

// stopAmbientLocked stops the ambient channel. Caller holds c.mu.
// It reports a playing-to-idle edge.
func (c *Coordinator) stopAmbientLocked(ctx context.Context) bool {
	if !c.ambientPlaying {
		return false
	}

	c.ambientChannel.Stop()
	c.ambientChannel = nil
	c.ambientPlaying = false

	logger.Info(ctx, "Ambient sound stopped")

	return true
}

// ToggleAmbient flips ambient playback and reports whether the operation
// succeeded (stopping always succeeds; starting may fail).
func (c *Coordinator) ToggleAmbient(ctx context.Context) bool {
	c.mu.Lock()

	if c.ambientPlaying {
		stopped := c.stopAmbientLocked(ctx)
		c.mu.Unlock()

		if stopped {
			c.sink.NotifyAmbientStatus(false)
		}

		return true
	}

	ok, started := c.playAmbientLocked(ctx)
	c.mu.Unlock()

	if started {
		c.sink.NotifyAmbientStatus(true)
	}

	return ok
}

// SetAmbientVolume validates and applies a new ambient volume, persists it
// through the settings provider and notifies subscribers. While an alarm is
// ringing the live channel stays clamped to the ducked ceiling; the new
// value becomes the restore target instead.
func (c *Coordinator) SetAmbientVolume(ctx context.Context, v int) error {
	if v < 0 || v > 100 {
		return domain.NewValidationError("volume", fmt.Sprintf("must be between 0 and 100, got %d", v))
	}

	c.mu.Lock()

	c.ambientVolume = v
	if c.alarmPlaying {
		c.preAlarmAmbient = v
	}

	if c.ambientPlaying {
		applied := v
		if c.alarmPlaying {
			applied = ducked(v)
		}

		c.ambientChannel.SetVolume(applied)
	}

	c.mu.Unlock()

	// Persistence is I/O and stays outside the lock.
	if err := c.provider.SetVolume(ctx, v); err != nil {
		logger.ErrorKV(ctx, "Failed to persist ambient volume", "volume", v, "error", err)
	}

	logger.InfoKV(ctx, "Ambient volume set", "volume", v)
	c.sink.NotifyVolume(v)

	return nil
}

// SetAlarmVolume validates and applies a new alarm volume, persists it and
// notifies subscribers.
func (c *Coordinator) SetAlarmVolume(ctx context.Context, v int) error {
	if v < 0 || v > 100 {
		return domain.NewValidationError("alarm_volume", fmt.Sprintf("must be between 0 and 100, got %d", v))
	}

	c.mu.Lock()

	c.alarmVolume = v
	if c.alarmPlaying {
		c.alarmChannel.SetVolume(v)
	}

	c.mu.Unlock()

	if err := c.provider.SetAlarmVolume(ctx, v); err != nil {
		logger.ErrorKV(ctx, "Failed to persist alarm volume", "volume", v, "error", err)
	}

	logger.InfoKV(ctx, "Alarm volume set", "volume", v)
	c.sink.NotifyAlarmVolume(v)

	return nil
}

// IsAlarmPlaying reports whether the alarm channel is active.
func (c *Coordinator) IsAlarmPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.alarmPlaying
}

// IsAmbientPlaying reports whether the ambient channel is active.
func (c *Coordinator) IsAmbientPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ambientPlaying
}

// GetAmbientVolume returns the requested ambient volume.
func (c *Coordinator) GetAmbientVolume() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ambientVolume
}

// GetAlarmVolume returns the requested alarm volume.
func (c *Coordinator) GetAlarmVolume() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.alarmVolume
}

// Close stops both channels and releases the sound source.
func (c *Coordinator) Close(ctx context.Context) {
	c.StopAlarm(ctx)
	c.StopAmbient(ctx)
	c.source.Close()
}

// ducked clamps an ambient volume to the ceiling applied while an alarm rings.
func ducked(v int) int {
	if v > duckedAmbientCeiling {
		return duckedAmbientCeiling
	}

	return v
}

package hardware

import (
	"context"
	"sync"

	domain "github.com/Doaky/pi-alarm-block/internal/domain/alarm"
	"github.com/Doaky/pi-alarm-block/internal/logger"
)

// volumeStep is the white noise volume change per encoder detent.
const volumeStep = 5

// AudioControl is the playback surface the panel drives.
type AudioControl interface {
	ToggleAmbient(ctx context.Context) bool
	StopAlarm(ctx context.Context)
	SetAmbientVolume(ctx context.Context, v int) error
	GetAmbientVolume() int
}

// ScheduleControl is the schedule surface the panel drives.
type ScheduleControl interface {
	GetSchedule() domain.Schedule
	SetSchedule(ctx context.Context, s domain.Schedule) error
}

// Controls turns panel gestures into service calls. It remembers the last
// selected schedule tag so the master switch can restore it.
type Controls struct {
	audio    AudioControl
	schedule ScheduleControl

	// mu protects lastTag.
	mu sync.Mutex
	// lastTag is the schedule restored when the master switch re-enables.
	lastTag domain.Schedule
}

// NewControls wires the panel to the given services. The restore tag starts
// from the current schedule when one is selected.
func NewControls(audio AudioControl, schedule ScheduleControl) *Controls {
	lastTag := domain.ScheduleA
	if current := schedule.GetSchedule(); current.ValidTag() {
		lastTag = current
	}

	return &Controls{
		audio:    audio,
		schedule: schedule,
		lastTag:  lastTag,
	}
}

// VolumeStep nudges the white noise volume one detent up or down,
// clamping at the scale ends.
func (c *Controls) VolumeStep(ctx context.Context, up bool) {
	v := c.audio.GetAmbientVolume()
	if up {
		v += volumeStep
	} else {
		v -= volumeStep
	}

	v = min(max(v, 0), 100)

	if err := c.audio.SetAmbientVolume(ctx, v); err != nil {
		logger.WarnKV(ctx, "Encoder volume change rejected", "volume", v, "error", err)
	}
}

// ToggleAmbient flips white noise playback.
func (c *Controls) ToggleAmbient(ctx context.Context) {
	c.audio.ToggleAmbient(ctx)
}

// StopAlarm silences a ringing alarm.
func (c *Controls) StopAlarm(ctx context.Context) {
	c.audio.StopAlarm(ctx)
}

// SelectTag follows the two-position schedule switch. The choice always
// becomes the restore target; the active schedule only changes while the
// master switch is on.
func (c *Controls) SelectTag(ctx context.Context, primary bool) {
	tag := domain.ScheduleB
	if primary {
		tag = domain.ScheduleA
	}

	c.mu.Lock()
	c.lastTag = tag
	c.mu.Unlock()

	if c.schedule.GetSchedule() == domain.ScheduleOff {
		logger.InfoKV(ctx, "Schedule switch moved while disabled", "tag", tag)

		return
	}

	if err := c.schedule.SetSchedule(ctx, tag); err != nil {
		logger.ErrorKV(ctx, "Failed to switch schedule", "tag", tag, "error", err)
	}
}

// SetEnabled follows the master switch: off disables all alarms, on
// restores the last selected tag.
func (c *Controls) SetEnabled(ctx context.Context, enabled bool) {
	current := c.schedule.GetSchedule()

	if !enabled {
		if current == domain.ScheduleOff {
			return
		}

		c.mu.Lock()
		c.lastTag = current
		c.mu.Unlock()

		if err := c.schedule.SetSchedule(ctx, domain.ScheduleOff); err != nil {
			logger.ErrorKV(ctx, "Failed to disable schedule", "error", err)
		}

		return
	}

	if current != domain.ScheduleOff {
		return
	}

	c.mu.Lock()
	tag := c.lastTag
	c.mu.Unlock()

	if err := c.schedule.SetSchedule(ctx, tag); err != nil {
		logger.ErrorKV(ctx, "Failed to re-enable schedule", "tag", tag, "error", err)
	}
}

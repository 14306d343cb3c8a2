package alarms

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domain "github.com/Doaky/pi-alarm-block/internal/domain/alarm"
	"github.com/Doaky/pi-alarm-block/internal/logger"
	"github.com/Doaky/pi-alarm-block/internal/notify"
	repo "github.com/Doaky/pi-alarm-block/internal/repository/alarms"
	"github.com/Doaky/pi-alarm-block/internal/repository/settings"
	"github.com/Doaky/pi-alarm-block/internal/scheduler"
)

// AlarmPlayer is the audio surface the coordinator drives when a trigger
// passes gating.
type AlarmPlayer interface {
	// PlayAlarm starts alarm playback, reporting whether it is running.
	PlayAlarm(ctx context.Context) bool
}

// Coordinator owns the in-memory alarm set and keeps the repository and the
// cron schedule consistent with it. All mutations happen under one lock;
// persistence and notifications run after it is released.
type Coordinator struct {
	// repo persists the alarm set across restarts.
	repo repo.Repository
	// provider holds the global schedule used for trigger gating.
	provider settings.Provider
	// scheduler fires registered alarms at their wall-clock times.
	scheduler scheduler.Scheduler
	// player starts alarm audio for triggers that pass gating.
	player AlarmPlayer
	// sink receives alarm list updates.
	sink notify.Sink

	// mu protects alarms and version.
	mu sync.Mutex
	// alarms is the current alarm set, keyed by ID.
	alarms map[string]*domain.Alarm
	// version counts mutations, stamping each snapshot handed to persist.
	version uint64

	// saveMu serializes repository writes and guards savedVersion, so the
	// file on disk always ends up holding the newest snapshot even when
	// mutators race past the point where mu is released.
	saveMu sync.Mutex
	// savedVersion is the version of the last snapshot written to disk.
	savedVersion uint64
}

// NewCoordinator loads the persisted alarm set and registers every alarm
// with the scheduler. A corrupt store degrades to an empty set with a
// warning instead of refusing to start.
func NewCoordinator(
	ctx context.Context,
	repository repo.Repository,
	provider settings.Provider,
	sched scheduler.Scheduler,
	player AlarmPlayer,
	sink notify.Sink,
) *Coordinator {
	alarms, err := repository.Load(ctx)
	if err != nil {
		logger.WarnKV(ctx, "Failed to load alarms, starting with an empty set", "error", err)
	}

	c := &Coordinator{
		repo:      repository,
		provider:  provider,
		scheduler: sched,
		player:    player,
		sink:      sink,
		alarms:    alarms,
	}

	sched.RescheduleAll(ctx, alarms)
	logger.InfoKV(ctx, "Alarms loaded", "count", len(alarms))

	return c
}

// HandleTrigger runs the gating chain for a fired alarm ID and starts
// playback when every gate passes. Blocked triggers are expected flow and
// log at info level; only an unknown ID warns.
func (c *Coordinator) HandleTrigger(ctx context.Context, id string) {
	c.mu.Lock()

	stored, ok := c.alarms[id]

	var alarm *domain.Alarm
	if ok {
		alarm = stored.Clone()
	}

	c.mu.Unlock()

	if !ok {
		logger.WarnKV(ctx, "Trigger fired for unknown alarm", "alarm_id", id)

		return
	}

	global := c.provider.Schedule()

	switch {
	case global == domain.ScheduleOff:
		logger.InfoKV(ctx, "Alarm blocked, global schedule is off", "alarm_id", id)
	case alarm.Schedule != global:
		logger.InfoKV(ctx, "Alarm blocked, schedule mismatch",
			"alarm_id", id, "alarm_schedule", alarm.Schedule, "global_schedule", global)
	case !alarm.Active:
		logger.InfoKV(ctx, "Alarm blocked, alarm is inactive", "alarm_id", id)
	default:
		logger.InfoKV(ctx, "Alarm triggered", "alarm_id", id)
		c.player.PlayAlarm(ctx)
	}
}

// SetAlarm validates, normalizes and stores an alarm, registering it with
// the scheduler and persisting the updated set. It returns the stored copy
// with any generated ID filled in.
func (c *Coordinator) SetAlarm(ctx context.Context, a *domain.Alarm) (*domain.Alarm, error) {
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("validate alarm: %w", err)
	}

	alarm := a.Clone()
	alarm.Normalize()

	c.mu.Lock()

	c.alarms[alarm.ID] = alarm
	if err := c.scheduler.Schedule(ctx, alarm); err != nil {
		delete(c.alarms, alarm.ID)
		c.mu.Unlock()

		return nil, fmt.Errorf("schedule alarm %s: %w", alarm.ID, err)
	}

	c.version++
	version := c.version
	snapshot := c.snapshotLocked()

	c.mu.Unlock()

	c.persist(ctx, version, snapshot)
	logger.InfoKV(ctx, "Alarm set", "alarm", alarm)
	c.sink.NotifyAlarmList(sortedList(snapshot))

	return alarm.Clone(), nil
}

// RemoveAlarms deletes the given alarms and their scheduled jobs. It is
// best-effort: unknown IDs are skipped, and the return value reports
// whether every requested ID was found.
func (c *Coordinator) RemoveAlarms(ctx context.Context, ids []string) bool {
	c.mu.Lock()

	removed := 0

	for _, id := range ids {
		if _, ok := c.alarms[id]; !ok {
			logger.WarnKV(ctx, "Cannot remove unknown alarm", "alarm_id", id)

			continue
		}

		delete(c.alarms, id)
		c.scheduler.Unschedule(ctx, id)
		removed++
	}

	var (
		version  uint64
		snapshot map[string]*domain.Alarm
	)

	if removed > 0 {
		c.version++
		version = c.version
		snapshot = c.snapshotLocked()
	}

	c.mu.Unlock()

	if removed == 0 {
		return len(ids) == 0
	}

	c.persist(ctx, version, snapshot)
	logger.InfoKV(ctx, "Alarms removed", "requested", len(ids), "removed", removed)
	c.sink.NotifyAlarmList(sortedList(snapshot))

	return removed == len(ids)
}

// GetAlarms returns a snapshot of the alarm set sorted by ID.
func (c *Coordinator) GetAlarms() []*domain.Alarm {
	c.mu.Lock()
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	return sortedList(snapshot)
}

// GetSchedule returns the current global schedule.
func (c *Coordinator) GetSchedule() domain.Schedule {
	return c.provider.Schedule()
}

// SetSchedule updates the global schedule and notifies subscribers.
// Validation is delegated to the settings provider.
func (c *Coordinator) SetSchedule(ctx context.Context, s domain.Schedule) error {
	if err := c.provider.SetSchedule(ctx, s); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Global schedule set", "schedule", s)
	c.sink.NotifySchedule(s)

	return nil
}

// snapshotLocked deep-copies the alarm set. Callers must hold mu.
func (c *Coordinator) snapshotLocked() map[string]*domain.Alarm {
	snapshot := make(map[string]*domain.Alarm, len(c.alarms))
	for id, a := range c.alarms {
		snapshot[id] = a.Clone()
	}

	return snapshot
}

// persist writes the snapshot through the repository. Snapshots that lost
// the race to a newer mutation are dropped, so disk never goes backwards.
// Failures are logged; the in-memory set stays authoritative.
func (c *Coordinator) persist(ctx context.Context, version uint64, snapshot map[string]*domain.Alarm) {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	if version <= c.savedVersion {
		logger.DebugKV(ctx, "Skipping outdated alarm snapshot",
			"version", version, "saved_version", c.savedVersion)

		return
	}

	if err := c.repo.Save(ctx, snapshot); err != nil {
		logger.ErrorKV(ctx, "Failed to persist alarms", "error", err)

		return
	}

	c.savedVersion = version
}

// sortedList flattens an alarm map into a slice sorted by ID.
func sortedList(alarms map[string]*domain.Alarm) []*domain.Alarm {
	list := make([]*domain.Alarm, 0, len(alarms))
	for _, a := range alarms {
		list = append(list, a)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})

	return list
}

package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	domain "github.com/Doaky/pi-alarm-block/internal/domain/alarm"
	"github.com/Doaky/pi-alarm-block/internal/logger"
)

// TriggerFunc is invoked with the alarm ID each time its cron entry fires.
// It runs on a scheduler-owned goroutine.
type TriggerFunc func(id string)

// Scheduler installs and removes recurring trigger jobs for alarms.
type Scheduler interface {
	Schedule(ctx context.Context, a *domain.Alarm) error
	Unschedule(ctx context.Context, id string)
	RescheduleAll(ctx context.Context, alarms map[string]*domain.Alarm)
}

// DefaultMisfireGrace is how late a fire may arrive and still execute.
const DefaultMisfireGrace = 60 * time.Second

// CronScheduler is the cron-backed Scheduler implementation.
type CronScheduler struct {
	// cron owns the timers and the goroutines jobs run on.
	cron *cron.Cron
	// trigger is the callback fired for each matching wall-clock minute.
	trigger TriggerFunc
	// grace bounds how late a fire may be before it is dropped.
	grace time.Duration
	// now is the clock source, injectable for tests.
	now func() time.Time

	// mu protects entries.
	mu sync.Mutex
	// entries maps alarm ID to its installed cron entry.
	entries map[string]cron.EntryID
}

// NewCronScheduler creates a scheduler with the default misfire grace window.
// Call Start before expecting fires and Stop on shutdown.
func NewCronScheduler(trigger TriggerFunc) *CronScheduler {
	return &CronScheduler{
		cron:    cron.New(),
		trigger: trigger,
		grace:   DefaultMisfireGrace,
		now:     time.Now,
		entries: make(map[string]cron.EntryID),
	}
}

// Start begins running installed entries.
func (s *CronScheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *CronScheduler) Stop(ctx context.Context) {
	stopCtx := s.cron.Stop()

	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		logger.Warn(ctx, "Scheduler stop interrupted before running jobs finished")
	}
}

// Schedule installs a recurring entry for the alarm, replacing any prior
// entry for the same ID. The callback never runs synchronously here.
func (s *CronScheduler) Schedule(ctx context.Context, a *domain.Alarm) error {
	spec := buildCronSpec(a)

	s.mu.Lock()
	defer s.mu.Unlock()

	if prior, ok := s.entries[a.ID]; ok {
		s.cron.Remove(prior)
		delete(s.entries, a.ID)
	}

	id := a.ID
	hour, minute := a.Hour, a.Minute

	entryID, err := s.cron.AddFunc(spec, func() {
		s.fire(id, hour, minute)
	})
	if err != nil {
		return fmt.Errorf("add cron entry %q: %w", spec, err)
	}

	s.entries[a.ID] = entryID
	logger.DebugKV(ctx, "Scheduled alarm", "id", a.ID, "spec", spec)

	return nil
}

// Unschedule removes the entry for the given alarm ID.
// Absence is not an error.
func (s *CronScheduler) Unschedule(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, ok := s.entries[id]
	if !ok {
		logger.DebugKV(ctx, "No schedule entry for alarm", "id", id)

		return
	}

	s.cron.Remove(entryID)
	delete(s.entries, id)
	logger.DebugKV(ctx, "Removed alarm schedule", "id", id)
}

// RescheduleAll drops every entry and installs one per provided alarm.
// A failure scheduling one alarm does not prevent scheduling the rest.
func (s *CronScheduler) RescheduleAll(ctx context.Context, alarms map[string]*domain.Alarm) {
	s.mu.Lock()
	for id, entryID := range s.entries {
		s.cron.Remove(entryID)
		delete(s.entries, id)
	}
	s.mu.Unlock()

	for _, a := range alarms {
		if err := s.Schedule(ctx, a); err != nil {
			logger.ErrorKV(ctx, "Failed to schedule alarm", "id", a.ID, "error", err)
		}
	}

	logger.InfoKV(ctx, "Rescheduled alarms", "count", len(alarms))
}

// Scheduled reports whether an entry exists for the given alarm ID.
func (s *CronScheduler) Scheduled(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.entries[id]

	return ok
}

// fire applies the misfire grace window before delivering the trigger.
func (s *CronScheduler) fire(id string, hour, minute int) {
	if late := misfireLateness(s.now(), hour, minute); late > s.grace {
		logger.WarnKV(context.Background(), "Dropping stale alarm fire",
			"id", id, "late", late, "grace", s.grace)

		return
	}

	s.trigger(id)
}

// misfireLateness returns how far past the most recent (hour, minute)
// wall-clock instant the given time is.
func misfireLateness(now time.Time, hour, minute int) time.Duration {
	scheduled := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if scheduled.After(now) {
		scheduled = scheduled.AddDate(0, 0, -1)
	}

	return now.Sub(scheduled)
}

// buildCronSpec renders the alarm's trigger triple as a standard cron
// expression. Alarm weekdays are Monday-based (0=Monday) while cron
// weekdays are Sunday-based (0=Sunday), hence the rotation.
func buildCronSpec(a *domain.Alarm) string {
	days := make([]int, 0, len(a.Days))
	for _, d := range a.Days {
		days = append(days, (d+1)%7)
	}

	sort.Ints(days)

	parts := make([]string, 0, len(days))
	for _, d := range days {
		parts = append(parts, strconv.Itoa(d))
	}

	return fmt.Sprintf("%d %d * * %s", a.Minute, a.Hour, strings.Join(parts, ","))
}

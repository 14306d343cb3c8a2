package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/Doaky/pi-alarm-block/internal/domain/alarm"
)

// testAlarm returns a valid alarm for scheduling.
func testAlarm(id string) *domain.Alarm {
	return &domain.Alarm{
		ID:       id,
		Hour:     7,
		Minute:   30,
		Days:     []int{0, 1, 4},
		Schedule: domain.ScheduleA,
		Active:   true,
	}
}

// TestBuildCronSpec verifies the weekday rotation from Monday-based to Sunday-based.
func TestBuildCronSpec(t *testing.T) {
	t.Parallel()

	// Monday(0)->1, Tuesday(1)->2, Friday(4)->5.
	require.Equal(t, "30 7 * * 1,2,5", buildCronSpec(testAlarm("x")))

	// Sunday(6) maps to cron day 0.
	sunday := testAlarm("y")
	sunday.Days = []int{6}
	sunday.Hour = 0
	sunday.Minute = 0
	require.Equal(t, "0 0 * * 0", buildCronSpec(sunday))
}

// TestMisfireLateness verifies lateness against the most recent matching instant.
func TestMisfireLateness(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 7, 30, 45, 0, time.UTC)

	require.Equal(t, 45*time.Second, misfireLateness(now, 7, 30))

	// A trigger time later in the day resolves to yesterday's instant.
	require.Equal(t, 8*time.Hour+30*time.Minute+45*time.Second, misfireLateness(now, 23, 0))
}

// TestSchedule_ReplacesAndRemoves verifies entry bookkeeping without starting cron.
func TestSchedule_ReplacesAndRemoves(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewCronScheduler(func(string) {})

	a := testAlarm("a1")
	require.NoError(t, s.Schedule(ctx, a))
	require.True(t, s.Scheduled("a1"))

	// Rescheduling the same ID replaces rather than duplicates.
	a.Hour = 8
	require.NoError(t, s.Schedule(ctx, a))
	require.True(t, s.Scheduled("a1"))
	require.Len(t, s.entries, 1)

	s.Unschedule(ctx, "a1")
	require.False(t, s.Scheduled("a1"))

	// Unscheduling an absent ID is a no-op.
	s.Unschedule(ctx, "a1")
	require.False(t, s.Scheduled("a1"))
}

// TestRescheduleAll verifies a full rebuild drops stale entries and keeps going past failures.
func TestRescheduleAll(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewCronScheduler(func(string) {})

	require.NoError(t, s.Schedule(ctx, testAlarm("stale")))

	good := testAlarm("good")
	broken := testAlarm("broken")
	broken.Minute = 90 // Produces a spec cron rejects; scheduling must continue.

	s.RescheduleAll(ctx, map[string]*domain.Alarm{
		"good":   good,
		"broken": broken,
	})

	require.True(t, s.Scheduled("good"))
	require.False(t, s.Scheduled("broken"))
	require.False(t, s.Scheduled("stale"))
}

// TestFire_GraceWindow verifies stale fires are dropped and fresh ones delivered.
func TestFire_GraceWindow(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		fired []string
	)

	s := NewCronScheduler(func(id string) {
		mu.Lock()
		defer mu.Unlock()

		fired = append(fired, id)
	})

	base := time.Date(2026, 3, 2, 7, 30, 0, 0, time.UTC)

	// 10 seconds late: within grace.
	s.now = func() time.Time { return base.Add(10 * time.Second) }
	s.fire("fresh", 7, 30)

	// Past the grace window: dropped.
	s.now = func() time.Time { return base.Add(DefaultMisfireGrace + time.Second) }
	s.fire("stale", 7, 30)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"fresh"}, fired)
}

// Package alarms implements the alarm lifecycle: creating, updating and
// removing alarms, keeping the cron schedule in sync with the stored set,
// and gating fired triggers against the global schedule before any sound
// is played.
package alarms

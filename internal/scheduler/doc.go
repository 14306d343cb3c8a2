// Package scheduler maps alarms onto recurring cron entries.
//
// Each active alarm owns one cron entry derived from its (hour, minute,
// weekday set) triple. Entries re-arm automatically and fire a callback on
// the cron goroutine, never synchronously inside Schedule. A bounded misfire
// grace window lets a briefly stalled process still fire alarms that are
// late by seconds instead of silently skipping them.
package scheduler

// Package alarms implements persistence for the alarm snapshot.
//
// The FileRepository stores the full alarm set as an ordered JSON list on
// disk, writing through a temporary file and rename so a crash mid-write
// cannot corrupt the snapshot. Malformed records are skipped on load rather
// than aborting the whole read. It exposes a Repository interface that the
// alarm coordinator depends on.
package alarms

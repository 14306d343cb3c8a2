// Package settings implements the persisted global settings of the alarm
// clock: the active schedule selector and the two volume levels.
//
// The core consumes the Provider interface only; the file-backed Store
// persists values as JSON and degrades to defaults when the file is missing
// or unreadable, so startup never fails on bad settings.
package settings

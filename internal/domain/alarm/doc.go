// Package alarm contains core domain types for the alarm clock business logic.
//
// It defines Alarm (one recurring trigger definition), Schedule (the tri-state
// global selector) and ValidationError (the only caller-visible failure from
// mutating operations), with Clone helpers to avoid leaking internal references.
package alarm

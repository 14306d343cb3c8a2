package notify

import (
	domain "github.com/Doaky/pi-alarm-block/internal/domain/alarm"
)

// Sink receives push notifications after coordinator state changes.
// Calls are fire-and-forget; no return value is relied upon.
type Sink interface {
	// NotifyAlarmStatus reports the alarm channel flipping between playing and idle.
	NotifyAlarmStatus(playing bool)
	// NotifyAmbientStatus reports the ambient channel flipping between playing and idle.
	NotifyAmbientStatus(playing bool)
	// NotifyVolume reports a new ambient volume.
	NotifyVolume(volume int)
	// NotifyAlarmVolume reports a new alarm volume.
	NotifyAlarmVolume(volume int)
	// NotifySchedule reports a new global schedule selector.
	NotifySchedule(schedule domain.Schedule)
	// NotifyAlarmList reports the current alarm set after an edit.
	NotifyAlarmList(alarms []*domain.Alarm)
}

// NopSink discards every notification. Useful in tests and headless wiring.
type NopSink struct{}

// NotifyAlarmStatus implements Sink.
func (NopSink) NotifyAlarmStatus(bool) {}

// NotifyAmbientStatus implements Sink.
func (NopSink) NotifyAmbientStatus(bool) {}

// NotifyVolume implements Sink.
func (NopSink) NotifyVolume(int) {}

// NotifyAlarmVolume implements Sink.
func (NopSink) NotifyAlarmVolume(int) {}

// NotifySchedule implements Sink.
func (NopSink) NotifySchedule(domain.Schedule) {}

// NotifyAlarmList implements Sink.
func (NopSink) NotifyAlarmList([]*domain.Alarm) {}

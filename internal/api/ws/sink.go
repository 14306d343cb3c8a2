package ws

import (
	"context"
	"encoding/json"

	domain "github.com/Doaky/pi-alarm-block/internal/domain/alarm"
	"github.com/Doaky/pi-alarm-block/internal/logger"
)

// Message types pushed to clients. The frontend switches on these.
const (
	typeAlarmStatus      = "alarm_status"
	typeWhiteNoiseStatus = "white_noise_status"
	typeVolumeUpdate     = "volume_update"
	typeAlarmVolume      = "alarm_volume_update"
	typeScheduleUpdate   = "schedule_update"
	typeAlarmUpdate      = "alarm_update"
	typeSystemShutdown   = "system_shutdown"
)

// envelope is the wire format for every pushed message.
type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Sink translates state-change notifications into JSON frames and hands
// them to the hub. It implements notify.Sink.
type Sink struct {
	hub *Hub
}

// NewSink wraps a hub in a notification sink.
func NewSink(hub *Hub) *Sink {
	return &Sink{hub: hub}
}

// NotifyAlarmStatus pushes an alarm playback state change.
func (s *Sink) NotifyAlarmStatus(playing bool) {
	s.push(typeAlarmStatus, map[string]any{"is_playing": playing})
}

// NotifyAmbientStatus pushes a white noise playback state change.
func (s *Sink) NotifyAmbientStatus(playing bool) {
	s.push(typeWhiteNoiseStatus, map[string]any{"is_playing": playing})
}

// NotifyVolume pushes a white noise volume change.
func (s *Sink) NotifyVolume(volume int) {
	s.push(typeVolumeUpdate, map[string]any{"volume": volume})
}

// NotifyAlarmVolume pushes an alarm volume change.
func (s *Sink) NotifyAlarmVolume(volume int) {
	s.push(typeAlarmVolume, map[string]any{"volume": volume})
}

// NotifySchedule pushes a global schedule change.
func (s *Sink) NotifySchedule(schedule domain.Schedule) {
	s.push(typeScheduleUpdate, map[string]any{"schedule": schedule})
}

// NotifyAlarmList pushes the full alarm list after any mutation.
func (s *Sink) NotifyAlarmList(alarms []*domain.Alarm) {
	s.push(typeAlarmUpdate, map[string]any{"alarms": alarms})
}

// NotifyShutdown tells clients the service is going down and disconnects
// them. Delivery is synchronous so the frame beats hub teardown.
func (s *Sink) NotifyShutdown() {
	ctx := context.Background()

	frame, err := json.Marshal(envelope{Type: typeSystemShutdown, Data: map[string]any{"shutdown": true}})
	if err != nil {
		logger.WarnKV(ctx, "Failed to marshal WebSocket frame", "type", typeSystemShutdown, "error", err)

		return
	}

	s.hub.Shutdown(ctx, frame)
}

func (s *Sink) push(msgType string, data any) {
	ctx := context.Background()

	frame, err := json.Marshal(envelope{Type: msgType, Data: data})
	if err != nil {
		logger.WarnKV(ctx, "Failed to marshal WebSocket frame", "type", msgType, "error", err)

		return
	}

	s.hub.Broadcast(ctx, frame)
}

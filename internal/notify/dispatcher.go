package notify

import (
	"context"

	domain "github.com/Doaky/pi-alarm-block/internal/domain/alarm"
	"github.com/Doaky/pi-alarm-block/internal/logger"
)

// defaultQueueSize bounds how many undelivered notifications may pile up
// before new ones are dropped.
const defaultQueueSize = 128

// Dispatcher is a Sink that forwards notifications to a target sink from a
// dedicated goroutine. Enqueueing never blocks the caller.
type Dispatcher struct {
	// target receives the drained notifications.
	target Sink
	// queue carries pending deliveries to the drain goroutine.
	queue chan func(Sink)
}

// NewDispatcher wraps target behind a buffered delivery queue.
// Call Run to start draining.
func NewDispatcher(target Sink) *Dispatcher {
	return &Dispatcher{
		target: target,
		queue:  make(chan func(Sink), defaultQueueSize),
	}
}

// Run drains the queue until ctx is canceled.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case deliver := <-d.queue:
			deliver(d.target)
		}
	}
}

// enqueue adds a delivery without blocking; a full queue drops the notification.
func (d *Dispatcher) enqueue(deliver func(Sink)) {
	select {
	case d.queue <- deliver:
	default:
		logger.Warn(context.Background(), "Notification queue full, dropping notification")
	}
}

// NotifyAlarmStatus implements Sink.
func (d *Dispatcher) NotifyAlarmStatus(playing bool) {
	d.enqueue(func(s Sink) { s.NotifyAlarmStatus(playing) })
}

// NotifyAmbientStatus implements Sink.
func (d *Dispatcher) NotifyAmbientStatus(playing bool) {
	d.enqueue(func(s Sink) { s.NotifyAmbientStatus(playing) })
}

// NotifyVolume implements Sink.
func (d *Dispatcher) NotifyVolume(volume int) {
	d.enqueue(func(s Sink) { s.NotifyVolume(volume) })
}

// NotifyAlarmVolume implements Sink.
func (d *Dispatcher) NotifyAlarmVolume(volume int) {
	d.enqueue(func(s Sink) { s.NotifyAlarmVolume(volume) })
}

// NotifySchedule implements Sink.
func (d *Dispatcher) NotifySchedule(schedule domain.Schedule) {
	d.enqueue(func(s Sink) { s.NotifySchedule(schedule) })
}

// NotifyAlarmList implements Sink.
func (d *Dispatcher) NotifyAlarmList(alarms []*domain.Alarm) {
	d.enqueue(func(s Sink) { s.NotifyAlarmList(alarms) })
}

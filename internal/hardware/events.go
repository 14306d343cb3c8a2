package hardware

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
)

// Linux input event types and the codes the panel devices emit.
const (
	evKey = 0x01
	evRel = 0x02
	evSw  = 0x05

	// relDial carries rotary encoder detents, signed per direction.
	relDial = 0x07
	// btnEncoder is the encoder push button (BTN_0 in the device tree).
	btnEncoder = 0x100
	// btnStop is the alarm stop button (BTN_1).
	btnStop = 0x101
	// swSchedule is the two-position schedule switch.
	swSchedule = 0x00
	// swMaster is the master on/off switch.
	swMaster = 0x01

	// keyPress is the EV_KEY value for a press; releases and autorepeats
	// are ignored.
	keyPress = 1
)

// inputEvent mirrors struct input_event on 64-bit Linux.
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// eventSize is the wire size of one input event.
var eventSize = binary.Size(inputEvent{})

var errShortEvent = errors.New("short input event")

// decodeEvent parses one raw input event.
func decodeEvent(raw []byte) (inputEvent, error) {
	var ev inputEvent

	if len(raw) < eventSize {
		return ev, errShortEvent
	}

	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, &ev); err != nil {
		return ev, err
	}

	return ev, nil
}

// dispatch routes a decoded event to the panel controls. Unknown events
// are ignored so unrelated devices can share the event node.
func dispatch(ctx context.Context, controls *Controls, ev inputEvent) {
	switch ev.Type {
	case evRel:
		if ev.Code != relDial || ev.Value == 0 {
			return
		}

		steps := int(ev.Value)
		up := steps > 0

		if steps < 0 {
			steps = -steps
		}

		for i := 0; i < steps; i++ {
			controls.VolumeStep(ctx, up)
		}
	case evKey:
		if ev.Value != keyPress {
			return
		}

		switch ev.Code {
		case btnEncoder:
			controls.ToggleAmbient(ctx)
		case btnStop:
			controls.StopAlarm(ctx)
		}
	case evSw:
		switch ev.Code {
		case swSchedule:
			controls.SelectTag(ctx, ev.Value != 0)
		case swMaster:
			controls.SetEnabled(ctx, ev.Value != 0)
		}
	}
}

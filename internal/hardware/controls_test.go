package hardware

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/Doaky/pi-alarm-block/internal/domain/alarm"
)

// panelAudio fakes the audio surface behind the panel.
type panelAudio struct {
	volume     int
	ambientOn  bool
	alarmStops int
}

func (a *panelAudio) ToggleAmbient(context.Context) bool {
	a.ambientOn = !a.ambientOn

	return true
}

func (a *panelAudio) StopAlarm(context.Context) {
	a.alarmStops++
}

func (a *panelAudio) SetAmbientVolume(_ context.Context, v int) error {
	if v < 0 || v > 100 {
		return domain.NewValidationError("volume", "out of range")
	}

	a.volume = v

	return nil
}

func (a *panelAudio) GetAmbientVolume() int { return a.volume }

// panelSchedule fakes the schedule surface behind the panel.
type panelSchedule struct {
	schedule domain.Schedule
}

func (s *panelSchedule) GetSchedule() domain.Schedule { return s.schedule }

func (s *panelSchedule) SetSchedule(_ context.Context, schedule domain.Schedule) error {
	if !schedule.ValidGlobal() {
		return domain.NewValidationError("schedule", "invalid")
	}

	s.schedule = schedule

	return nil
}

func newPanel(volume int, schedule domain.Schedule) (*Controls, *panelAudio, *panelSchedule) {
	audio := &panelAudio{volume: volume}
	sched := &panelSchedule{schedule: schedule}

	return NewControls(audio, sched), audio, sched
}

func TestVolumeStep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	controls, audio, _ := newPanel(50, domain.ScheduleA)

	controls.VolumeStep(ctx, true)
	require.Equal(t, 55, audio.volume)

	controls.VolumeStep(ctx, false)
	controls.VolumeStep(ctx, false)
	require.Equal(t, 45, audio.volume)
}

func TestVolumeStep_ClampsAtEnds(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	controls, audio, _ := newPanel(98, domain.ScheduleA)

	controls.VolumeStep(ctx, true)
	require.Equal(t, 100, audio.volume)

	audio.volume = 2
	controls.VolumeStep(ctx, false)
	require.Equal(t, 0, audio.volume)
}

func TestToggleAmbientAndStopAlarm(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	controls, audio, _ := newPanel(50, domain.ScheduleA)

	controls.ToggleAmbient(ctx)
	require.True(t, audio.ambientOn)

	controls.ToggleAmbient(ctx)
	require.False(t, audio.ambientOn)

	controls.StopAlarm(ctx)
	controls.StopAlarm(ctx)
	require.Equal(t, 2, audio.alarmStops)
}

func TestSelectTag(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	controls, _, sched := newPanel(50, domain.ScheduleA)

	controls.SelectTag(ctx, false)
	require.Equal(t, domain.ScheduleB, sched.schedule)

	controls.SelectTag(ctx, true)
	require.Equal(t, domain.ScheduleA, sched.schedule)
}

// TestSelectTag_WhileDisabled verifies the switch position is remembered
// but the schedule stays off until the master switch re-enables.
func TestSelectTag_WhileDisabled(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	controls, _, sched := newPanel(50, domain.ScheduleOff)

	controls.SelectTag(ctx, false)
	require.Equal(t, domain.ScheduleOff, sched.schedule)

	controls.SetEnabled(ctx, true)
	require.Equal(t, domain.ScheduleB, sched.schedule)
}

func TestSetEnabled_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	controls, _, sched := newPanel(50, domain.ScheduleB)

	controls.SetEnabled(ctx, false)
	require.Equal(t, domain.ScheduleOff, sched.schedule)

	// Repeated off is a no-op.
	controls.SetEnabled(ctx, false)
	require.Equal(t, domain.ScheduleOff, sched.schedule)

	controls.SetEnabled(ctx, true)
	require.Equal(t, domain.ScheduleB, sched.schedule)

	// Re-enabling while already enabled leaves the schedule alone.
	controls.SetEnabled(ctx, true)
	require.Equal(t, domain.ScheduleB, sched.schedule)
}

func encodeEvent(t *testing.T, ev inputEvent) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, ev))

	return buf.Bytes()
}

func TestDecodeEvent(t *testing.T) {
	t.Parallel()

	want := inputEvent{Sec: 12, Usec: 34, Type: evRel, Code: relDial, Value: -1}

	got, err := decodeEvent(encodeEvent(t, want))
	require.NoError(t, err)
	require.Equal(t, want, got)

	_, err = decodeEvent([]byte{0x01, 0x02})
	require.ErrorIs(t, err, errShortEvent)
}

func TestDispatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	controls, audio, sched := newPanel(50, domain.ScheduleA)

	dispatch(ctx, controls, inputEvent{Type: evRel, Code: relDial, Value: 2})
	require.Equal(t, 60, audio.volume)

	dispatch(ctx, controls, inputEvent{Type: evRel, Code: relDial, Value: -1})
	require.Equal(t, 55, audio.volume)

	dispatch(ctx, controls, inputEvent{Type: evKey, Code: btnEncoder, Value: keyPress})
	require.True(t, audio.ambientOn)

	// Key releases are ignored.
	dispatch(ctx, controls, inputEvent{Type: evKey, Code: btnEncoder, Value: 0})
	require.True(t, audio.ambientOn)

	dispatch(ctx, controls, inputEvent{Type: evKey, Code: btnStop, Value: keyPress})
	require.Equal(t, 1, audio.alarmStops)

	dispatch(ctx, controls, inputEvent{Type: evSw, Code: swSchedule, Value: 0})
	require.Equal(t, domain.ScheduleB, sched.schedule)

	dispatch(ctx, controls, inputEvent{Type: evSw, Code: swMaster, Value: 0})
	require.Equal(t, domain.ScheduleOff, sched.schedule)

	dispatch(ctx, controls, inputEvent{Type: evSw, Code: swMaster, Value: 1})
	require.Equal(t, domain.ScheduleB, sched.schedule)

	// Unrelated events fall through.
	dispatch(ctx, controls, inputEvent{Type: evKey, Code: 0x30, Value: keyPress})
	require.Equal(t, 55, audio.volume)
}

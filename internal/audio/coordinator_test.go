package audio

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/Doaky/pi-alarm-block/internal/domain/alarm"
)

// fakeProvider is an in-memory settings.Provider for coordinator tests.
type fakeProvider struct {
	mu          sync.Mutex
	schedule    domain.Schedule
	volume      int
	alarmVolume int
	saves       int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{schedule: domain.ScheduleA, volume: 60, alarmVolume: 75}
}

func (p *fakeProvider) Schedule() domain.Schedule {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.schedule
}

func (p *fakeProvider) SetSchedule(_ context.Context, s domain.Schedule) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.schedule = s

	return nil
}

func (p *fakeProvider) Volume() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.volume
}

func (p *fakeProvider) SetVolume(_ context.Context, v int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.volume = v
	p.saves++

	return nil
}

func (p *fakeProvider) AlarmVolume() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.alarmVolume
}

func (p *fakeProvider) SetAlarmVolume(_ context.Context, v int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.alarmVolume = v

	return nil
}

// countingSink records notification edges synchronously.
type countingSink struct {
	mu            sync.Mutex
	alarmStatus   []bool
	ambientStatus []bool
	volumes       []int
	alarmVolumes  []int
}

func (s *countingSink) NotifyAlarmStatus(playing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.alarmStatus = append(s.alarmStatus, playing)
}

func (s *countingSink) NotifyAmbientStatus(playing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ambientStatus = append(s.ambientStatus, playing)
}

func (s *countingSink) NotifyVolume(v int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.volumes = append(s.volumes, v)
}

func (s *countingSink) NotifyAlarmVolume(v int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.alarmVolumes = append(s.alarmVolumes, v)
}

func (s *countingSink) NotifySchedule(domain.Schedule) {}

func (s *countingSink) NotifyAlarmList([]*domain.Alarm) {}

// newTestCoordinator wires a coordinator over a simulated source.
func newTestCoordinator(t *testing.T) (*Coordinator, *SimulatedSource, *fakeProvider, *countingSink) {
	t.Helper()

	source := NewSimulatedSource([]string{"alarm_one.ogg", "alarm_two.ogg"}, "ambient")
	provider := newFakeProvider()
	sink := &countingSink{}

	c := NewCoordinator(source, provider, sink)
	c.randIndex = func(int) int { return 0 }

	return c, source, provider, sink
}

// channelFor returns the live simulated channel playing the given key.
func channelFor(source *SimulatedSource, key string) *simChannel {
	source.mu.Lock()
	defer source.mu.Unlock()

	for ch := range source.active {
		if ch.key == key {
			return ch
		}
	}

	return nil
}

// TestDuckingInvariant verifies ambient volume returns to exactly its
// pre-alarm value after the alarm stops.
func TestDuckingInvariant(t *testing.T) {
	t.Parallel()

	c, source, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	require.NoError(t, c.SetAmbientVolume(ctx, 64))
	require.True(t, c.PlayAmbient(ctx))

	ambient := channelFor(source, "ambient")
	require.NotNil(t, ambient)
	require.Equal(t, 64, ambient.Volume())

	require.True(t, c.PlayAlarm(ctx))
	require.Equal(t, duckedAmbientCeiling, ambient.Volume())
	require.True(t, c.IsAmbientPlaying(), "ducking attenuates, never stops")

	c.StopAlarm(ctx)
	require.Equal(t, 64, ambient.Volume())
	require.Equal(t, 64, c.GetAmbientVolume())
}

// TestStopAlarm_Idempotent verifies repeated stops produce one edge notification.
func TestStopAlarm_Idempotent(t *testing.T) {
	t.Parallel()

	c, _, _, sink := newTestCoordinator(t)
	ctx := context.Background()

	require.True(t, c.PlayAlarm(ctx))
	c.StopAlarm(ctx)
	c.StopAlarm(ctx)

	require.False(t, c.IsAlarmPlaying())

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Equal(t, []bool{true, false}, sink.alarmStatus)
}

// TestPlayAlarm_RestartKeepsSingleEdge verifies a restart does not emit a
// second playing notification.
func TestPlayAlarm_RestartKeepsSingleEdge(t *testing.T) {
	t.Parallel()

	c, _, _, sink := newTestCoordinator(t)
	ctx := context.Background()

	require.True(t, c.PlayAlarm(ctx))
	require.True(t, c.PlayAlarm(ctx))
	require.True(t, c.IsAlarmPlaying())

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Equal(t, []bool{true}, sink.alarmStatus)
}

// TestVolumeBounds verifies out-of-range volumes fail without mutation.
func TestVolumeBounds(t *testing.T) {
	t.Parallel()

	c, _, provider, _ := newTestCoordinator(t)
	ctx := context.Background()

	before := c.GetAmbientVolume()

	var verr *domain.ValidationError

	for _, v := range []int{-1, 101, 500} {
		err := c.SetAmbientVolume(ctx, v)
		require.ErrorAs(t, err, &verr)

		err = c.SetAlarmVolume(ctx, v)
		require.ErrorAs(t, err, &verr)
	}

	require.Equal(t, before, c.GetAmbientVolume())
	require.Zero(t, provider.saves, "rejected volumes must not be persisted")
}

// TestSetAmbientVolume_Persists verifies accepted values reach the provider.
func TestSetAmbientVolume_Persists(t *testing.T) {
	t.Parallel()

	c, _, provider, sink := newTestCoordinator(t)
	ctx := context.Background()

	require.NoError(t, c.SetAmbientVolume(ctx, 35))
	require.Equal(t, 35, provider.Volume())

	require.NoError(t, c.SetAlarmVolume(ctx, 85))
	require.Equal(t, 85, provider.AlarmVolume())

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Equal(t, []int{35}, sink.volumes)
	require.Equal(t, []int{85}, sink.alarmVolumes)
}

// TestSetVolume_AppliesLive verifies running channels pick up new volumes.
func TestSetVolume_AppliesLive(t *testing.T) {
	t.Parallel()

	c, source, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	require.True(t, c.PlayAlarm(ctx))

	alarmCh := channelFor(source, "alarm_one.ogg")
	require.NotNil(t, alarmCh)

	require.NoError(t, c.SetAlarmVolume(ctx, 90))
	require.Equal(t, 90, alarmCh.Volume())
}

// TestSetAmbientVolume_ClampedWhileAlarmRings verifies the ducked ceiling
// holds for live changes and the new value becomes the restore target.
func TestSetAmbientVolume_ClampedWhileAlarmRings(t *testing.T) {
	t.Parallel()

	c, source, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	require.True(t, c.PlayAmbient(ctx))
	require.True(t, c.PlayAlarm(ctx))

	ambient := channelFor(source, "ambient")
	require.NoError(t, c.SetAmbientVolume(ctx, 80))
	require.Equal(t, duckedAmbientCeiling, ambient.Volume())

	c.StopAlarm(ctx)
	require.Equal(t, 80, ambient.Volume())
}

// TestToggleAmbient verifies toggling flips playback either way.
func TestToggleAmbient(t *testing.T) {
	t.Parallel()

	c, _, _, sink := newTestCoordinator(t)
	ctx := context.Background()

	require.True(t, c.ToggleAmbient(ctx))
	require.True(t, c.IsAmbientPlaying())

	require.True(t, c.ToggleAmbient(ctx))
	require.False(t, c.IsAmbientPlaying())

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Equal(t, []bool{true, false}, sink.ambientStatus)
}

// TestPlayAlarm_ChannelExhaustion verifies exhaustion is a false return,
// not an error, and leaves ambient sound unducked.
func TestPlayAlarm_ChannelExhaustion(t *testing.T) {
	t.Parallel()

	c, source, _, _ := newTestCoordinator(t)
	source.maxChannels = 1
	ctx := context.Background()

	require.NoError(t, c.SetAmbientVolume(ctx, 50))
	require.True(t, c.PlayAmbient(ctx))

	require.False(t, c.PlayAlarm(ctx))
	require.False(t, c.IsAlarmPlaying())

	ambient := channelFor(source, "ambient")
	require.Equal(t, 50, ambient.Volume(), "failed alarm start must undo the duck")
}

// TestPlayAlarm_NoSounds verifies an empty pool cannot play.
func TestPlayAlarm_NoSounds(t *testing.T) {
	t.Parallel()

	source := NewSimulatedSource(nil, "ambient")
	c := NewCoordinator(source, newFakeProvider(), &countingSink{})

	require.False(t, c.PlayAlarm(context.Background()))
}

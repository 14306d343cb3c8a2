package audio

import "sync"

// SimulatedSource is a SoundSource with no audio hardware behind it, used on
// development machines and in tests. It tracks channel occupancy so the
// coordinator's exhaustion path behaves like the real source.
type SimulatedSource struct {
	// alarmKeys are the pretend alarm track keys.
	alarmKeys []string
	// ambientKey is the pretend ambient track key, empty when absent.
	ambientKey string
	// maxChannels bounds concurrent playback like the real mixer does.
	maxChannels int

	// mu guards active.
	mu sync.Mutex
	// active holds the currently playing simulated channels.
	active map[*simChannel]struct{}
}

// NewSimulatedSource creates a simulated source with the default channel count.
func NewSimulatedSource(alarmKeys []string, ambientKey string) *SimulatedSource {
	return &SimulatedSource{
		alarmKeys:   append([]string(nil), alarmKeys...),
		ambientKey:  ambientKey,
		maxChannels: maxPlaybackChannels,
		active:      make(map[*simChannel]struct{}),
	}
}

// AlarmSounds implements SoundSource.
func (s *SimulatedSource) AlarmSounds() []string {
	return append([]string(nil), s.alarmKeys...)
}

// AmbientSound implements SoundSource.
func (s *SimulatedSource) AmbientSound() (string, bool) {
	return s.ambientKey, s.ambientKey != ""
}

// Play implements SoundSource.
func (s *SimulatedSource) Play(key string, volume int) (Channel, error) {
	if !s.knows(key) {
		return nil, ErrUnknownSound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.active) >= s.maxChannels {
		return nil, ErrNoFreeChannel
	}

	ch := &simChannel{source: s, key: key, volume: volume}
	s.active[ch] = struct{}{}

	return ch, nil
}

// Close implements SoundSource.
func (s *SimulatedSource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = make(map[*simChannel]struct{})
}

// knows reports whether the key names a loaded sound.
func (s *SimulatedSource) knows(key string) bool {
	if key == s.ambientKey && key != "" {
		return true
	}

	for _, k := range s.alarmKeys {
		if k == key {
			return true
		}
	}

	return false
}

// release returns a channel slot to the pool.
func (s *SimulatedSource) release(ch *simChannel) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.active, ch)
}

// simChannel is the Channel handle handed out by SimulatedSource.
type simChannel struct {
	source *SimulatedSource
	key    string

	mu      sync.Mutex
	volume  int
	stopped bool
}

// SetVolume implements Channel.
func (ch *simChannel) SetVolume(percent int) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	ch.volume = percent
}

// Stop implements Channel.
func (ch *simChannel) Stop() {
	ch.mu.Lock()

	if ch.stopped {
		ch.mu.Unlock()

		return
	}

	ch.stopped = true
	ch.mu.Unlock()

	ch.source.release(ch)
}

// Volume returns the last applied volume. Test helper.
func (ch *simChannel) Volume() int {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	return ch.volume
}

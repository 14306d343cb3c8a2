package audio

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/speaker"
	"github.com/gopxl/beep/vorbis"
	"github.com/gopxl/beep/wav"

	"github.com/Doaky/pi-alarm-block/internal/logger"
)

const (
	// playbackSampleRate is the mixer rate; sounds at other rates are resampled once at load.
	playbackSampleRate = beep.SampleRate(44100)
	// maxPlaybackChannels mirrors the channel pool of the original mixer setup.
	maxPlaybackChannels = 8
	// alarmSoundPrefix keys alarm tracks apart from the ambient track.
	alarmSoundPrefix = "alarm_"
	// ambientSoundKey is the fixed key of the ambient track.
	ambientSoundKey = "ambient"
)

// speakerInit guards the process-wide speaker initialisation.
//
//nolint:gochecknoglobals // The speaker is a process-wide resource.
var speakerInit sync.Once

// BeepSource is the speaker-backed SoundSource. Sounds are decoded into
// memory buffers at load time so playback never touches the filesystem.
type BeepSource struct {
	// buffers holds the decoded, resampled sounds by key.
	buffers map[string]*beep.Buffer
	// alarmKeys is the sorted key list of the alarm pool.
	alarmKeys []string
	// hasAmbient reports whether the ambient track decoded successfully.
	hasAmbient bool

	// mu guards active.
	mu sync.Mutex
	// active holds the currently playing channels.
	active map[*beepChannel]struct{}
}

// NewBeepSource loads every alarm track under soundsDir/alarms plus the
// ambient file, initialises the speaker and returns a ready source.
// A track that fails to decode is skipped and logged, not fatal.
func NewBeepSource(ctx context.Context, soundsDir, ambientFile string) (*BeepSource, error) {
	src := &BeepSource{
		buffers: make(map[string]*beep.Buffer),
		active:  make(map[*beepChannel]struct{}),
	}

	alarmDir := filepath.Join(soundsDir, "alarms")

	entries, err := os.ReadDir(alarmDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read alarm sounds dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !supportedSoundFile(entry.Name()) {
			continue
		}

		path := filepath.Join(alarmDir, entry.Name())

		buffer, decodeErr := decodeSoundFile(path)
		if decodeErr != nil {
			logger.WarnKV(ctx, "Skipping undecodable alarm sound", "path", path, "error", decodeErr)
			continue
		}

		key := alarmSoundPrefix + entry.Name()
		src.buffers[key] = buffer
		src.alarmKeys = append(src.alarmKeys, key)
		logger.InfoKV(ctx, "Loaded alarm sound", "path", path)
	}

	sort.Strings(src.alarmKeys)

	if len(src.alarmKeys) == 0 {
		logger.WarnKV(ctx, "No alarm sounds found", "dir", alarmDir)
	}

	ambientPath := filepath.Join(soundsDir, ambientFile)
	if buffer, decodeErr := decodeSoundFile(ambientPath); decodeErr != nil {
		logger.WarnKV(ctx, "Ambient sound unavailable", "path", ambientPath, "error", decodeErr)
	} else {
		src.buffers[ambientSoundKey] = buffer
		src.hasAmbient = true
		logger.InfoKV(ctx, "Loaded ambient sound", "path", ambientPath)
	}

	var initErr error

	speakerInit.Do(func() {
		initErr = speaker.Init(playbackSampleRate, playbackSampleRate.N(100*time.Millisecond))
	})

	if initErr != nil {
		return nil, fmt.Errorf("init speaker: %w", initErr)
	}

	return src, nil
}

// AlarmSounds implements SoundSource.
func (s *BeepSource) AlarmSounds() []string {
	return append([]string(nil), s.alarmKeys...)
}

// AmbientSound implements SoundSource.
func (s *BeepSource) AmbientSound() (string, bool) {
	return ambientSoundKey, s.hasAmbient
}

// Play implements SoundSource. The returned channel loops the buffered
// sound until stopped.
func (s *BeepSource) Play(key string, volume int) (Channel, error) {
	buffer, ok := s.buffers[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSound, key)
	}

	s.mu.Lock()

	if len(s.active) >= maxPlaybackChannels {
		s.mu.Unlock()

		return nil, ErrNoFreeChannel
	}

	ctrl := &beep.Ctrl{
		Streamer: beep.Loop(-1, buffer.Streamer(0, buffer.Len())),
	}
	vol := &effects.Volume{
		Streamer: ctrl,
		Base:     2,
		Volume:   volumeGain(volume),
		Silent:   volume == 0,
	}

	ch := &beepChannel{source: s, ctrl: ctrl, vol: vol}
	s.active[ch] = struct{}{}
	s.mu.Unlock()

	speaker.Play(vol)

	return ch, nil
}

// Close implements SoundSource.
func (s *BeepSource) Close() {
	s.mu.Lock()
	channels := make([]*beepChannel, 0, len(s.active))
	for ch := range s.active {
		channels = append(channels, ch)
	}
	s.mu.Unlock()

	for _, ch := range channels {
		ch.Stop()
	}

	speaker.Clear()
}

// release returns a channel slot to the pool.
func (s *BeepSource) release(ch *beepChannel) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.active, ch)
}

// beepChannel is the Channel handle handed out by BeepSource.
type beepChannel struct {
	source *BeepSource
	ctrl   *beep.Ctrl
	vol    *effects.Volume

	mu      sync.Mutex
	stopped bool
}

// SetVolume implements Channel.
func (ch *beepChannel) SetVolume(percent int) {
	speaker.Lock()
	ch.vol.Volume = volumeGain(percent)
	ch.vol.Silent = percent == 0
	speaker.Unlock()
}

// Stop implements Channel. Detaching the streamer drains the control wrapper
// so the speaker mixer drops it.
func (ch *beepChannel) Stop() {
	ch.mu.Lock()

	if ch.stopped {
		ch.mu.Unlock()

		return
	}

	ch.stopped = true
	ch.mu.Unlock()

	speaker.Lock()
	ch.ctrl.Paused = true
	ch.ctrl.Streamer = nil
	speaker.Unlock()

	ch.source.release(ch)
}

// volumeGain converts a 0-100 percentage to a base-2 logarithmic gain.
func volumeGain(percent int) float64 {
	if percent <= 0 {
		return 0
	}

	return math.Log2(float64(percent) / 100)
}

// decodeSoundFile decodes a wav/mp3/ogg file into a buffer at the playback rate.
func decodeSoundFile(path string) (*beep.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sound file: %w", err)
	}
	defer f.Close()

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".ogg":
		streamer, format, err = vorbis.Decode(f)
	default:
		return nil, fmt.Errorf("%w: unsupported extension %s", ErrUnknownSound, filepath.Ext(path))
	}

	if err != nil {
		return nil, fmt.Errorf("decode sound file: %w", err)
	}
	defer streamer.Close()

	buffer := beep.NewBuffer(beep.Format{
		SampleRate:  playbackSampleRate,
		NumChannels: 2,
		Precision:   2,
	})

	if format.SampleRate == playbackSampleRate {
		buffer.Append(streamer)
	} else {
		buffer.Append(beep.Resample(4, format.SampleRate, playbackSampleRate, streamer))
	}

	return buffer, nil
}

// supportedSoundFile reports whether the filename has a decodable extension.
func supportedSoundFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav", ".mp3", ".ogg":
		return true
	default:
		return false
	}
}

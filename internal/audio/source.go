package audio

import "errors"

var (
	// ErrNoFreeChannel is returned when every playback channel is busy.
	ErrNoFreeChannel = errors.New("no free playback channel")
	// ErrUnknownSound is returned when a key does not match a loaded sound.
	ErrUnknownSound = errors.New("unknown sound")
)

// Channel is a handle to one active looping playback.
type Channel interface {
	// SetVolume applies a new volume (0-100) to the running playback.
	SetVolume(percent int)
	// Stop ends the playback and releases the channel.
	Stop()
}

// SoundSource is the capability interface over loadable looping audio
// assets. Implementations must be safe for concurrent use.
type SoundSource interface {
	// AlarmSounds returns the keys of the available alarm tracks.
	AlarmSounds() []string
	// AmbientSound returns the key of the ambient track and whether one is loaded.
	AmbientSound() (string, bool)
	// Play starts looped playback of the keyed sound at the given volume.
	// It fails fast with ErrNoFreeChannel when all channels are busy.
	Play(key string, volume int) (Channel, error)
	// Close stops all playback and releases the source.
	Close()
}

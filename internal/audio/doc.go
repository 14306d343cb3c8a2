// Package audio coordinates sound output between the looping alarm tone and
// the looping ambient (white noise) track.
//
// The Coordinator owns both logical channels and enforces the ducking
// protocol: alarm playback always wins, ambient sound is attenuated (never
// stopped) while an alarm rings and restored to its exact pre-alarm volume
// afterwards. Playback itself goes through the SoundSource capability
// interface, which has a speaker-backed implementation (beep) and a
// simulated one selected once at startup.
package audio

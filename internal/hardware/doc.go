// Package hardware bridges the physical front panel to the audio and
// schedule services: a rotary encoder for white noise volume, its push
// button for white noise playback, a toggle for stopping a ringing alarm,
// and the two-position schedule and master switches.
//
// On Linux the panel is read from evdev input devices with a single epoll
// loop. Other platforms (and the simulated hardware mode) run without a
// reader; the control logic itself is portable.
package hardware

// Package config loads and validates the YAML settings shared by the
// alarm-block service: listen address, storage and sound locations,
// logging, and the hardware input mode.
package config

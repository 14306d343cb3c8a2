// Package server assembles the alarm-block service: storage, audio,
// scheduling, the WebSocket hub and the HTTP API, with graceful shutdown.
package server

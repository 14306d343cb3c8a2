// Package ws pushes real-time state updates to browser clients over
// WebSocket. A hub fans serialized JSON frames out to per-client write
// pumps so one slow client never blocks the rest, and a Sink adapter
// translates state-change notifications into the wire envelope.
package ws

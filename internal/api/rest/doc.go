// Package rest exposes the HTTP API the web frontend talks to: alarm CRUD,
// schedule selection, audio control and status queries under /api/v1, the
// WebSocket upgrade at /ws, and the static frontend at the root.
package rest

// Package notify decouples state mutation from push notification delivery.
//
// Coordinators publish through the Sink interface after a mutation commits.
// The Dispatcher wraps a real sink behind a buffered queue drained by one
// goroutine, so a slow or failing subscriber can never block or fail the
// mutating call; a full queue drops with a warning.
package notify

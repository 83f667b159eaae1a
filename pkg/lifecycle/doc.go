// Package lifecycle drives the subscription screen: it decides, from
// bridge availability, cached state and bridge responses, whether the
// host shows premium content, the product catalog or an error, and keeps
// that decision current.
//
// The controller is a small state machine (uninitialized, initializing,
// active, not subscribed, error) with an explicit transition table.
// The bridge is the source of truth; the persisted cache only provides
// the instant last-known-good fast path at startup and is reconciled
// against a live status check shortly after use.
//
// A subscription's expiry schedules a deferred re-check just past the
// expiry instant. Rescheduling always cancels the previous timer, so at
// most one expiry re-check is ever pending. Foreground re-entry re-runs
// the status check unconditionally, whatever the current state.
//
// Failures never escape as faults: every bridge error degrades to a
// visible message and, where possible, a rendered catalog.
package lifecycle

// Package events carries storefront notifications from the purchase
// layer to whatever renders it: lifecycle state changes, user-facing
// messages with severity, catalog views to render and premium-content
// visibility toggles.
//
// The hub fans events out to any number of subscribers with non-blocking
// sends: a slow consumer loses events rather than stalling the purchase
// flow, which only ever costs a repaint.
package events

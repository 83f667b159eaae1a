// Package cache persists the last known subscription state and product
// list into a key-value store so the storefront can show last-known-good
// premium state instantly on startup.
//
// The cache is an optimism-only optimization, never an authority: an
// entry is honored only while it is fresh (written less than the
// staleness TTL ago, one hour by default) and unexpired. A stale entry is
// ignored; an expired one is deleted on read. Callers are expected to
// reconcile against a live bridge status call shortly after using a
// cached entry, which bounds staleness exposure.
//
// Writes never fail the caller: storage errors are logged and swallowed,
// since losing the cache only costs the fast path.
package cache

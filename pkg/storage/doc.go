// Package storage defines the string key-value store the purchase layer
// persists its state into (subscription cache entry, last-check timestamp,
// cached product list).
//
// The host application decides where that state actually lives: the
// in-memory store suits tests and ephemeral sessions, the Redis store
// shared host processes, and the Postgres store hosts that already carry
// a relational database. All implementations expose the same three
// operations; a missing key is reported as ErrKeyNotFound.
package storage

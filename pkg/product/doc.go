// Package product defines the data model shared by the purchase bridge,
// the subscription cache and the catalog presenter: products, purchase
// records and the result payloads delivered by bridge callbacks.
//
// Bridge payloads arrive as raw JSON strings. Decode helpers in this
// package treat malformed input as ErrDeserialize so that callers can
// degrade to an absent/empty value instead of failing.
//
// Timestamps on the wire are inconsistent across bridge implementations:
// some emit epoch milliseconds, others date strings. The Timestamp type
// accepts both.
package product

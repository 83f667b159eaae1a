// Package ledger tracks a session-local balance of consumable units
// (gems) purchased and spent through the storefront, together with the
// purchase tokens that still await a consume confirmation from the
// bridge.
//
// The balance is process-local by design: the store is the authority on
// purchases, the ledger only mirrors what this session granted and spent.
// A debit never drives the balance negative; an insufficient balance
// fails the debit and leaves all counters untouched.
//
// Token bookkeeping pairs the most recently purchased token with the next
// consume confirmation (LIFO). That pairing is inherited behavior, not a
// verified correspondence by token identity.
package ledger

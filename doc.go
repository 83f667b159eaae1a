// Package purchasekit implements the client-side in-app purchase layer
// for applications embedding a native purchase bridge.
//
// Native bridges (AppPurchase-style objects injected by mobile shells)
// expose fire-and-forget operations that deliver results later through
// globally named callbacks. PurchaseKit wraps that surface with typed
// asynchronous calls and builds the storefront behavior on top:
//
//   - pkg/bridge: capability-checked adapter over the native transport,
//     with a simulated transport for development.
//   - pkg/product: products, purchase records and bridge result payloads.
//   - pkg/storage: the key-value persistence boundary (memory, Redis,
//     Postgres).
//   - pkg/cache: persisted last-known-good subscription state with
//     staleness and expiry rules.
//   - pkg/lifecycle: the subscription screen state machine.
//   - pkg/catalog: product list filtering, ordering and placeholders.
//   - pkg/ledger: the consumable (gem) balance and token bookkeeping.
//   - pkg/events: fan-out of storefront notifications to renderers.
//   - pkg/logger: configured slog loggers with context injection.
//   - pkg/httpserver: graceful HTTP hosting for the storefront surface.
//   - modules/storefront: an HTTP surface for host shells.
//   - cmd/storefrontd: the development host over the simulated bridge.
//
// The packages compose but do not require each other; hosts wire only
// what their storefront variant needs.
package purchasekit

package bridge

import "context"

// Operation identifies a purchase bridge operation. Values match the
// method names exposed by AppPurchase-style WebView bridges.
type Operation string

const (
	OpGetProducts           Operation = "getProducts"
	OpPurchaseProduct       Operation = "purchaseProduct"
	OpPurchaseSubscription  Operation = "purchaseSubscription"
	OpConsumePurchase       Operation = "consumePurchase"
	OpGetPurchaseStatus     Operation = "getPurchaseStatus"
	OpGetSubscriptionStatus Operation = "getSubscriptionStatus"
	OpGetPurchaseHistory    Operation = "getPurchaseHistory"
	OpInitialize            Operation = "initialize"
	OpVerifyReceipt         Operation = "verifyReceipt"
)

// Capabilities is the set of operations a transport supports. Bridges
// differ per host version, so optional operations are tested here once
// rather than ad hoc before every call.
type Capabilities map[Operation]bool

// NewCapabilities builds a capability set from the given operations.
func NewCapabilities(ops ...Operation) Capabilities {
	caps := make(Capabilities, len(ops))
	for _, op := range ops {
		caps[op] = true
	}
	return caps
}

// Has reports whether op is supported.
func (c Capabilities) Has(op Operation) bool {
	return c[op]
}

// First returns the first supported operation among ops. Used to pick
// between equivalent bridge generations, e.g. getSubscriptionStatus
// versus getPurchaseStatus.
func (c Capabilities) First(ops ...Operation) (Operation, bool) {
	for _, op := range ops {
		if c[op] {
			return op, true
		}
	}
	return "", false
}

// Transport is the raw bridge surface supplied by the host application.
// Invoke fires an operation and returns without waiting; the transport
// later delivers the result payload to the named callback through the
// Dispatcher it was bound to.
type Transport interface {
	Capabilities() Capabilities
	Invoke(ctx context.Context, op Operation, payload, callback string) error
}

// Dispatcher receives named callback invocations from the host side.
type Dispatcher interface {
	Dispatch(callback, payload string) bool
}

// binder is implemented by transports that generate their own replies and
// need a reference to the dispatcher, e.g. the simulated transport.
type binder interface {
	Bind(Dispatcher)
}

// Package bridge adapts the host application's native purchase bridge to
// an asynchronous request/response API.
//
// Native bridges expose fire-and-forget operations that deliver their
// result later by invoking a globally named callback with a JSON payload.
// The Adapter hides that indirection: Call registers a unique callback
// name, fires the transport and returns a Call future the caller can
// await; the host glue feeds incoming callback invocations into Dispatch.
//
// Bridge availability is capability-checked once at construction instead
// of probed at every call site. A missing bridge or unsupported operation
// fails synchronously with ErrBridgeUnavailable or ErrUnsupportedOperation
// so callers can degrade to an offline path.
//
// There is no delivery or ordering guarantee between in-flight calls.
// A callback may arrive after the caller has moved on; late deliveries to
// a forgotten call are dropped.
package bridge

package bridge

import "errors"

var (
	// ErrBridgeUnavailable indicates no purchase bridge is present in the
	// host environment. Callers must fall back to an offline path or a
	// displayed error, never crash.
	ErrBridgeUnavailable = errors.New("bridge: purchase bridge is not available")

	// ErrUnsupportedOperation indicates the bridge is present but does
	// not expose the requested operation.
	ErrUnsupportedOperation = errors.New("bridge: operation not supported by transport")

	// ErrCallTimeout indicates a callback never arrived within the
	// allotted time.
	ErrCallTimeout = errors.New("bridge: timed out waiting for callback")

	// ErrCallForgotten indicates the call was abandoned before a result
	// arrived.
	ErrCallForgotten = errors.New("bridge: call was forgotten")
)

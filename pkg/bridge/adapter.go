package bridge

import (
	"log/slog"
	"strings"
	"sync"

	"context"

	"github.com/google/uuid"
)

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger used for dropped deliveries and transport
// failures. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(a *Adapter) {
		if log != nil {
			a.log = log
		}
	}
}

// WithCallbackPrefix overrides the prefix of generated callback names.
// Host glue can use the prefix to route global callback invocations to
// the right adapter instance.
func WithCallbackPrefix(prefix string) Option {
	return func(a *Adapter) {
		if prefix != "" {
			a.prefix = prefix
		}
	}
}

// Adapter wraps a Transport with callback registration and pending-call
// tracking. A nil transport is a valid degenerate adapter representing an
// absent bridge: every Call fails with ErrBridgeUnavailable.
type Adapter struct {
	transport Transport
	caps      Capabilities
	log       *slog.Logger
	prefix    string

	mu      sync.Mutex
	pending map[string]*Call
}

// New creates an adapter over the given transport. The transport's
// capabilities are captured once here. Transports that deliver their own
// replies (the simulated transport) are bound back to the adapter.
func New(transport Transport, opts ...Option) *Adapter {
	a := &Adapter{
		transport: transport,
		log:       slog.Default(),
		prefix:    "purchasekit_cb_",
		pending:   make(map[string]*Call),
	}
	if transport != nil {
		a.caps = transport.Capabilities()
	}

	for _, opt := range opts {
		opt(a)
	}

	if b, ok := transport.(binder); ok {
		b.Bind(a)
	}

	return a
}

// Available reports whether a bridge transport is present at all.
func (a *Adapter) Available() bool {
	return a.transport != nil
}

// Supports reports whether the bridge exposes the given operation.
func (a *Adapter) Supports(op Operation) bool {
	return a.caps.Has(op)
}

// Capabilities returns the capability set captured at construction.
func (a *Adapter) Capabilities() Capabilities {
	return a.caps
}

// Call fires op with the given serialized argument and returns a Call
// future that completes when the host delivers the result. Fails
// synchronously when the bridge is absent or the operation unsupported;
// it never panics.
func (a *Adapter) Call(ctx context.Context, op Operation, payload string) (*Call, error) {
	if a.transport == nil {
		return nil, ErrBridgeUnavailable
	}
	if !a.caps.Has(op) {
		return nil, ErrUnsupportedOperation
	}

	callback := a.prefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	call := newCall(op, callback)

	a.mu.Lock()
	a.pending[callback] = call
	a.mu.Unlock()

	if err := a.transport.Invoke(ctx, op, payload, callback); err != nil {
		a.mu.Lock()
		delete(a.pending, callback)
		a.mu.Unlock()
		return nil, err
	}

	return call, nil
}

// Dispatch delivers a raw result payload to the pending call registered
// under callback. Returns false when no such call exists, which covers
// late deliveries to forgotten calls; those are logged and ignored.
func (a *Adapter) Dispatch(callback, payload string) bool {
	a.mu.Lock()
	call, ok := a.pending[callback]
	if ok {
		delete(a.pending, callback)
	}
	a.mu.Unlock()

	if !ok {
		a.log.Debug("dropping bridge callback with no pending call",
			slog.String("callback", callback))
		return false
	}

	call.resolve(payload)
	return true
}

// Forget abandons a pending call, typically after AwaitTimeout expired.
// A delivery arriving afterwards is dropped by Dispatch.
func (a *Adapter) Forget(call *Call) {
	if call == nil {
		return
	}

	a.mu.Lock()
	delete(a.pending, call.callback)
	a.mu.Unlock()

	call.fail(ErrCallForgotten)
}

// Pending returns the number of calls still waiting for a callback.
func (a *Adapter) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

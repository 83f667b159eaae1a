package bridge

import (
	"context"
	"sync"
	"time"
)

// Call represents one in-flight bridge round trip. It completes when the
// host delivers a payload to the call's callback name, or fails when the
// call is forgotten.
type Call struct {
	op       Operation
	callback string

	once    sync.Once
	done    chan struct{}
	payload string
	err     error
}

func newCall(op Operation, callback string) *Call {
	return &Call{
		op:       op,
		callback: callback,
		done:     make(chan struct{}),
	}
}

// Operation returns the bridge operation this call was fired for.
func (c *Call) Operation() Operation {
	return c.op
}

// Callback returns the globally unique callback name registered for this
// call.
func (c *Call) Callback() string {
	return c.callback
}

// Done returns a channel closed when the call completes or is forgotten.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Completed reports whether a result or failure is already available.
func (c *Call) Completed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Await blocks until the result payload arrives or ctx is cancelled.
func (c *Call) Await(ctx context.Context) (string, error) {
	select {
	case <-c.done:
		return c.payload, c.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// AwaitTimeout blocks until the result payload arrives or the timeout
// elapses, returning ErrCallTimeout in the latter case. The caller should
// then Forget the call on its adapter so a late delivery is dropped.
func (c *Call) AwaitTimeout(timeout time.Duration) (string, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case <-c.done:
		return c.payload, c.err
	case <-t.C:
		return "", ErrCallTimeout
	}
}

func (c *Call) resolve(payload string) {
	c.once.Do(func() {
		c.payload = payload
		close(c.done)
	})
}

func (c *Call) fail(err error) {
	c.once.Do(func() {
		c.err = err
		close(c.done)
	})
}

package corocoro

// deferredFunc is a cleanup callback, called with up to two caller-owned
// data values. Unary registrations (Defer) pass nil for data2.
type deferredFunc func(data1, data2 any)

type deferredAction struct {
	fn    deferredFunc
	data1 any
	data2 any
}

// Defer appends a unary deferred action. Actions run in LIFO order when
// the Coroutine is reset or freed, or when the holder rolls back to an
// earlier generation via DeferredRun; the handler returning does not
// run them.
func (c *Coroutine) Defer(fn func(data any), data any) {
	c.Defer2(func(d1, _ any) { fn(d1) }, data, nil)
}

// Defer2 appends a binary deferred action.
func (c *Coroutine) Defer2(fn func(data1, data2 any), data1, data2 any) {
	defer func() {
		if recover() != nil {
			// Matches spec.md §7: allocation failure when appending a
			// deferred action is logged and the registration is
			// silently dropped rather than surfaced to the caller.
			c.logDropped("defer")
		}
	}()
	c.deferred = append(c.deferred, deferredAction{fn: fn, data1: data1, data2: data2})
}

// DeferredGeneration snapshots the number of currently registered
// deferred actions. Pass the result to DeferredRun to roll back to this
// point later.
func (c *Coroutine) DeferredGeneration() int {
	return len(c.deferred)
}

// DeferredRun executes and discards deferred actions down to generation,
// in LIFO order (most recently registered first). Calling it with the
// Coroutine's current generation is a no-op; calling it with 0 runs and
// discards everything.
func (c *Coroutine) DeferredRun(generation int) {
	if generation < 0 {
		generation = 0
	}
	if generation > len(c.deferred) {
		generation = len(c.deferred)
	}
	for i := len(c.deferred) - 1; i >= generation; i-- {
		action := c.deferred[i]
		action.fn(action.data1, action.data2)
	}
	c.deferred = c.deferred[:generation]
}

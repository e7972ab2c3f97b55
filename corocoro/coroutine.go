package corocoro

import (
	"fmt"
	"log/slog"
	"strings"
)

// HandlerFunc is the body of a Coroutine. It runs on the Coroutine's own
// goroutine and may call Yield on the Coroutine it is given any number of
// times before returning. Its return value becomes the Coroutine's final
// yield value, per spec.md §4.1.
type HandlerFunc func(coro *Coroutine, data any) int32

// result is what flows back from the Coroutine's goroutine to whoever
// resumed it.
type result struct {
	value int32
	done  bool
}

// Coroutine is a stackful, cooperatively-scheduled task. See the package
// doc and spec.md §3/§4.1 for the full contract.
type Coroutine struct {
	switcher *Switcher

	handler HandlerFunc
	data    any

	toCoro   chan int32  // resume values flow into the coroutine's goroutine
	fromCoro chan result // yielded/returned values flow out
	cancel   chan struct{}
	stop     chan struct{}

	scratch []byte

	deferred   []deferredAction
	yieldValue int32
	ended      bool
	freed      bool
}

// New allocates a Coroutine bound to switcher, with handler as its entry
// point and data passed through to it unchanged. The returned bool is
// false only if allocation failed; per spec.md §4.1 the Coroutine is
// either fully constructed or not returned at all.
//
// stackSize is rounded up to MinStackSize; it sizes the scratch region
// returned by Coroutine.Scratch, which corohttp uses to assemble
// response headers without heap allocation.
func New(switcher *Switcher, stackSize int, handler HandlerFunc, data any) (*Coroutine, bool) {
	if stackSize < MinStackSize {
		stackSize = MinStackSize
	}
	defer func() {
		// make() only fails by panicking (out-of-memory), which is not
		// recoverable in the general case; this recover exists so a
		// future allocator swap (e.g. a pooled/arena allocator) can
		// report failure through the documented (nil, false) contract
		// instead of crashing the process.
		recover()
	}()
	coro := &Coroutine{
		switcher: switcher,
		handler:  handler,
		data:     data,
		toCoro:   make(chan int32, 1),
		fromCoro: make(chan result, 1),
		cancel:   make(chan struct{}),
		stop:     make(chan struct{}),
		scratch:  make([]byte, stackSize),
	}
	go coro.run()
	return coro, true
}

// Scratch returns the Coroutine's fixed-size scratch region. Its capacity
// is the stackSize given to New, rounded up to MinStackSize.
func (c *Coroutine) Scratch() []byte {
	return c.scratch
}

// Ended reports whether the Coroutine's handler has returned.
func (c *Coroutine) Ended() bool {
	return c.ended
}

// run is the trampoline: it waits to be started (or reset), invokes the
// handler, records its return value, marks the Coroutine ended, and
// parks again so Reset can recycle it without spawning a new goroutine.
func (c *Coroutine) run() {
	for {
		select {
		case <-c.toCoro:
		case <-c.stop:
			return
		case <-c.cancel:
			// Freed before the handler started: report back so Free
			// does not wait for a handler that never runs.
			c.fromCoro <- result{done: true}
			return
		}
		ret := c.invoke()
		c.yieldValue = ret
		c.ended = true
		c.fromCoro <- result{value: ret, done: true}
	}
}

type canceled struct{}

func (c *Coroutine) invoke() (ret int32) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(canceled); ok {
				ret = 0
				return
			}
			panic(r)
		}
	}()
	return c.handler(c, c.data)
}

// Resume continues a suspended Coroutine. Precondition: !Ended(). It
// returns the value the Coroutine yields, or its final return value if
// the handler completes during this resume.
func (c *Coroutine) Resume(v int32) int32 {
	if c.ended {
		panic("corocoro: Resume called on an ended Coroutine")
	}
	if c.switcher != nil {
		c.switcher.current = c
	}
	c.toCoro <- v
	r := <-c.fromCoro
	if c.switcher != nil {
		c.switcher.current = nil
	}
	c.yieldValue = r.value
	return r.value
}

// ResumeValue is an alias for Resume kept for symmetry with spec.md's
// naming (resume_value(coro, v)); Resume already accepts the value
// observed by the in-flight Yield.
func (c *Coroutine) ResumeValue(v int32) int32 {
	return c.Resume(v)
}

// Yield suspends the calling Coroutine, handing v back to whoever last
// resumed it, and blocks until the next Resume/ResumeValue call. It must
// only be called from within the Coroutine's own handler goroutine.
func (c *Coroutine) Yield(v int32) int32 {
	c.fromCoro <- result{value: v, done: false}
	select {
	case w := <-c.toCoro:
		return w
	case <-c.cancel:
		panic(canceled{})
	}
}

// Reset recycles an ended Coroutine for a new handler/data pair without
// reallocating its scratch region or spawning a new goroutine. Pending
// deferred actions run in LIFO order and are discarded first.
func (c *Coroutine) Reset(handler HandlerFunc, data any) {
	if !c.ended {
		panic("corocoro: Reset called on a Coroutine that has not ended")
	}
	c.DeferredRun(0)
	c.Prime(handler, data)
	c.ended = false
	c.yieldValue = 0
}

// Prime rebinds a Coroutine's entry point before its first Resume. It
// has no effect on a Coroutine that has already started running; use
// Reset to rebind one that has ended. This lets callers allocate a pool
// of "empty" Coroutines up front and assign each a handler only once a
// request actually arrives.
func (c *Coroutine) Prime(handler HandlerFunc, data any) {
	c.handler = handler
	c.data = data
}

// Free releases the Coroutine. If it is still suspended (cancelled
// without a final Resume), its in-flight Yield is interrupted first and
// Free waits for the handler goroutine to unwind before touching the
// deferred list, preserving the single-thread-per-coroutine invariant
// across the cancellation. Remaining deferred actions then run in LIFO
// order, matching spec.md §4.1/§5 ("cancellation... free still runs all
// deferred actions").
func (c *Coroutine) Free() {
	if c.freed {
		return
	}
	if !c.ended {
		close(c.cancel)
		<-c.fromCoro
		c.ended = true
	}
	c.DeferredRun(0)
	close(c.stop)
	c.freed = true
}

// Malloc allocates size bytes and registers (via Defer) their release
// when the Coroutine is reset or freed. Go's garbage collector reclaims the
// backing array on its own, so the registered cleanup is a no-op; the
// helper exists so callers can express "this allocation's lifetime is
// scoped to the Coroutine" the way spec.md's malloc does, and so tests
// can exercise the deferred-action bookkeeping the same way production
// code does.
func (c *Coroutine) Malloc(size int) []byte {
	buf := make([]byte, size)
	c.Defer(func(any) {}, nil)
	return buf
}

// MallocWith allocates size bytes and registers destructor to run (via
// Defer) against the returned slice when the Coroutine is reset or
// freed; the handler returning does not run it. Use this for resources that need more than GC to release, e.g.
// an *os.File wrapped in a finalizer closure.
func (c *Coroutine) MallocWith(size int, destructor func([]byte)) []byte {
	buf := make([]byte, size)
	c.Defer(func(any) { destructor(buf) }, nil)
	return buf
}

// Strdup duplicates s into a freshly allocated string, registering a
// no-op cleanup for symmetry with spec.md's strdup (see Malloc).
func (c *Coroutine) Strdup(s string) string {
	c.Defer(func(any) {}, nil)
	return strings.Clone(s)
}

// Strndup duplicates up to n bytes of s, registering a no-op cleanup.
func (c *Coroutine) Strndup(s string, n int) string {
	if n > len(s) {
		n = len(s)
	}
	c.Defer(func(any) {}, nil)
	return s[:n]
}

// Printf formats according to fmt and args, returning the formatted
// string and registering a no-op cleanup for symmetry with spec.md's
// printf helper.
func (c *Coroutine) Printf(format string, args ...any) string {
	c.Defer(func(any) {}, nil)
	return fmt.Sprintf(format, args...)
}

func (c *Coroutine) logDropped(kind string) {
	slog.Warn("corocoro: dropping deferred action, allocation failed", "kind", kind)
}

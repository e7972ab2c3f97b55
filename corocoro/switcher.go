// Package corocoro implements the stackful coroutine runtime described in
// spec.md §4.1: symmetric suspend/resume with per-task deferred-cleanup
// and a per-I/O-thread Switcher.
//
// Rather than attempting a register-level context switch (spec.md §9,
// design note (a)), this implementation follows design note (b): each
// Coroutine is backed by one goroutine, and control is handed back and
// forth between it and its caller over a pair of buffered channels. The
// handoff is strictly alternating — only one side ever runs at a time —
// so the state machine and LIFO cleanup semantics in spec.md are
// preserved exactly, without locks.
package corocoro

// MinStackSize is the minimum size of a Coroutine's scratch region, per
// spec.md §4.1 ("an owned stack region of at least 16 KiB").
const MinStackSize = 16 * 1024

// Switcher is the per-I/O-thread context used by every coroutine that
// thread resumes. In the register-switch design it would hold the two
// saved machine contexts (caller, callee); here it exists mainly to give
// call sites the same vocabulary and a place to track which Coroutine a
// thread is currently inside of, matching the single-thread-per-
// coroutine invariant of spec.md §5: a Coroutine created against one
// Switcher is only ever resumed from that thread.
type Switcher struct {
	// current is the Coroutine this thread is inside of, or nil when the
	// thread is not inside any coroutine. It exists for debugging/
	// introspection; Resume/Yield do not depend on it.
	current *Coroutine
}

// NewSwitcher creates a Switcher. One should be created per I/O thread
// and reused for every Coroutine that thread owns.
func NewSwitcher() *Switcher {
	return &Switcher{}
}

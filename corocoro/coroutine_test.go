package corocoro_test

import (
	"testing"

	"github.com/corosrv/corosrv/corocoro"
)

func TestDeferredLIFO(t *testing.T) {
	sw := corocoro.NewSwitcher()
	coro, ok := corocoro.New(sw, 0, func(c *corocoro.Coroutine, _ any) int32 {
		return 0
	}, nil)
	if !ok {
		t.Fatal("New failed")
	}

	var order []int
	for _, i := range []int{1, 2, 3} {
		i := i
		coro.Defer(func(any) { order = append(order, i) }, nil)
	}

	coro.Resume(0)
	coro.Free()

	want := []int{3, 2, 1}
	if len(order) != len(want) {
		t.Fatalf("unexpected order: got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("unexpected order: got %v, want %v", order, want)
		}
	}
}

func TestGenerationRollback(t *testing.T) {
	sw := corocoro.NewSwitcher()
	coro, ok := corocoro.New(sw, 0, func(c *corocoro.Coroutine, _ any) int32 { return 0 }, nil)
	if !ok {
		t.Fatal("New failed")
	}
	defer coro.Free()

	var order []string
	coro.Defer(func(any) { order = append(order, "outer") }, nil)

	gen := coro.DeferredGeneration()
	coro.Defer(func(any) { order = append(order, "a") }, nil)
	coro.Defer(func(any) { order = append(order, "b") }, nil)

	coro.DeferredRun(gen)

	want := []string{"b", "a"}
	if len(order) != len(want) {
		t.Fatalf("unexpected order after rollback: got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("unexpected order after rollback: got %v, want %v", order, want)
		}
	}
	if got := coro.DeferredGeneration(); got != gen {
		t.Errorf("generation after rollback: got %d, want %d", got, gen)
	}
}

func TestResumeYieldDuality(t *testing.T) {
	sw := corocoro.NewSwitcher()
	var observed []int32
	coro, ok := corocoro.New(sw, 0, func(c *corocoro.Coroutine, _ any) int32 {
		w := c.Yield(1)
		observed = append(observed, w)
		w = c.Yield(2)
		observed = append(observed, w)
		return 99
	}, nil)
	if !ok {
		t.Fatal("New failed")
	}
	defer coro.Free()

	if got := coro.Resume(0); got != 1 {
		t.Errorf("first resume: got %d, want 1", got)
	}
	if got := coro.ResumeValue(10); got != 2 {
		t.Errorf("second resume: got %d, want 2", got)
	}
	if got := coro.ResumeValue(20); got != 99 {
		t.Errorf("third resume: got %d, want 99", got)
	}
	if !coro.Ended() {
		t.Error("expected coroutine to have ended")
	}

	want := []int32{10, 20}
	if len(observed) != len(want) || observed[0] != want[0] || observed[1] != want[1] {
		t.Errorf("unexpected observed values: got %v, want %v", observed, want)
	}
}

func TestTerminalOnce(t *testing.T) {
	sw := corocoro.NewSwitcher()
	coro, ok := corocoro.New(sw, 0, func(c *corocoro.Coroutine, _ any) int32 { return 7 }, nil)
	if !ok {
		t.Fatal("New failed")
	}
	defer coro.Free()

	coro.Resume(0)
	if !coro.Ended() {
		t.Fatal("expected coroutine to have ended")
	}

	defer func() {
		if recover() == nil {
			t.Error("expected Resume on ended Coroutine to panic")
		}
	}()
	coro.Resume(0)
}

func TestResetRecyclesCoroutine(t *testing.T) {
	sw := corocoro.NewSwitcher()
	coro, ok := corocoro.New(sw, 0, func(c *corocoro.Coroutine, d any) int32 {
		return d.(int32)
	}, int32(1))
	if !ok {
		t.Fatal("New failed")
	}
	defer coro.Free()

	if got := coro.Resume(0); got != 1 {
		t.Fatalf("got %d, want 1", got)
	}

	var cleanedUp bool
	coro.Defer(func(any) { cleanedUp = true }, nil)

	coro.Reset(func(c *corocoro.Coroutine, d any) int32 {
		return d.(int32)
	}, int32(2))

	if !cleanedUp {
		t.Error("expected Reset to run pending deferred actions before reuse")
	}
	if coro.Ended() {
		t.Error("expected Reset to clear ended")
	}
	if got := coro.Resume(0); got != 2 {
		t.Errorf("got %d, want 2", got)
	}
}

func TestMallocWithRunsDestructorOnFree(t *testing.T) {
	sw := corocoro.NewSwitcher()
	var released bool
	coro, ok := corocoro.New(sw, 0, func(c *corocoro.Coroutine, _ any) int32 {
		c.MallocWith(64, func([]byte) { released = true })
		return 0
	}, nil)
	if !ok {
		t.Fatal("New failed")
	}

	coro.Resume(0)
	if released {
		t.Fatal("destructor ran before Free")
	}
	coro.Free()
	if !released {
		t.Error("expected destructor to run on Free")
	}
}

func TestFreeWithoutResumeRunsDeferredActions(t *testing.T) {
	sw := corocoro.NewSwitcher()
	var cleaned []string
	coro, ok := corocoro.New(sw, 0, func(c *corocoro.Coroutine, _ any) int32 {
		c.Defer(func(any) { cleaned = append(cleaned, "a") }, nil)
		c.Defer(func(any) { cleaned = append(cleaned, "b") }, nil)
		c.Yield(0) // block here; Free below cancels without resuming
		c.Defer(func(any) { cleaned = append(cleaned, "unreachable") }, nil)
		return 0
	}, nil)
	if !ok {
		t.Fatal("New failed")
	}

	coro.Resume(0) // runs up to the Yield, suspends there

	coro.Free()

	want := []string{"b", "a"}
	if len(cleaned) != len(want) || cleaned[0] != want[0] || cleaned[1] != want[1] {
		t.Errorf("unexpected cleanup order: got %v, want %v", cleaned, want)
	}
}

func TestScratchIsAtLeastMinStackSize(t *testing.T) {
	sw := corocoro.NewSwitcher()
	coro, ok := corocoro.New(sw, 0, func(c *corocoro.Coroutine, _ any) int32 { return 0 }, nil)
	if !ok {
		t.Fatal("New failed")
	}
	defer coro.Free()

	if got := len(coro.Scratch()); got < corocoro.MinStackSize {
		t.Errorf("scratch size %d below minimum %d", got, corocoro.MinStackSize)
	}
}

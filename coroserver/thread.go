package coroserver

import (
	"bufio"
	"errors"
	"io"
	"log/slog"

	"golang.org/x/sys/unix"

	"github.com/corosrv/corosrv/corocoro"
	"github.com/corosrv/corosrv/corohttp"
)

// HandlerFunc handles one parsed request against a Response Context. Its
// return value becomes the coroutine's final yield value and, per
// spec.md §6, is treated the same as Abort once the coroutine ends: the
// connection is closed (or, if KeepAlive is set on ctx, a fresh request
// is read on the same socket with a recycled coroutine).
type HandlerFunc func(ctx *corohttp.Context, req *Request) int32

// Thread is one I/O thread: a single epoll loop, a single corocoro
// Switcher, and a pool of recycled Coroutine values, per spec.md §5
// ("each I/O thread owns one Switcher and an event loop; coroutines
// from that thread never migrate").
type Thread struct {
	epfd      int
	listenFd  int
	switcher  *corocoro.Switcher
	handler   HandlerFunc
	product   string
	stackSize int

	conns map[int]*connState
	pool  []*corocoro.Coroutine
}

type connState struct {
	fd       int
	conn     *conn
	coro     *corocoro.Coroutine
	ctx      *corohttp.Context
	reader   *bufio.Reader
	writeArm bool // true once epoll interest has been switched to EPOLLOUT
}

type handlerArgs struct {
	ctx *corohttp.Context
	req *Request
}

// newThread creates a Thread bound to a pre-built, non-blocking,
// already-listening socket fd (see listen in server.go, which sets
// SO_REUSEPORT so each Thread can own an independent accept queue on
// the same address).
func newThread(listenFd int, handler HandlerFunc, product string, stackSize int) (*Thread, error) {
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, err
	}
	t := &Thread{
		epfd:      epfd,
		listenFd:  listenFd,
		switcher:  corocoro.NewSwitcher(),
		handler:   handler,
		product:   product,
		stackSize: stackSize,
		conns:     make(map[int]*connState),
	}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, listenFd, &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(listenFd),
	}); err != nil {
		return nil, err
	}
	return t, nil
}

// run is the epoll loop. It never returns except on an unrecoverable
// epoll_wait error.
func (t *Thread) run() error {
	events := make([]unix.EpollEvent, 128)
	for {
		n, err := unix.EpollWait(t.epfd, events, -1)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return err
		}
		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			if fd == t.listenFd {
				t.acceptAll()
				continue
			}
			t.handleReady(fd, events[i].Events)
		}
	}
}

func (t *Thread) acceptAll() {
	for {
		connFd, _, err := unix.Accept4(t.listenFd, unix.SOCK_NONBLOCK)
		if err != nil {
			if !errors.Is(err, unix.EAGAIN) {
				slog.Warn("coroserver: accept failed", "error", err)
			}
			return
		}
		if err := unix.EpollCtl(t.epfd, unix.EPOLL_CTL_ADD, connFd, &unix.EpollEvent{
			Events: unix.EPOLLIN,
			Fd:     int32(connFd),
		}); err != nil {
			slog.Warn("coroserver: epoll_ctl add failed", "error", err)
			unix.Close(connFd)
			continue
		}
		t.conns[connFd] = &connState{
			fd:     connFd,
			reader: bufio.NewReader(&fdReader{fd: connFd}),
		}
	}
}

func (t *Thread) handleReady(fd int, ev uint32) {
	cs, ok := t.conns[fd]
	if !ok {
		return
	}

	if cs.coro == nil {
		t.startRequest(cs)
		return
	}

	// A suspended coroutine becomes runnable again either because the
	// socket is now writable (it was blocked inside Send/Writev) or
	// because of a spurious wakeup; either way Resume drives it forward.
	t.resume(cs, corohttp.MayResume)
}

func (t *Thread) startRequest(cs *connState) {
	req, err := readRequest(cs.reader)
	if err != nil {
		t.closeConn(cs)
		return
	}

	coro := t.acquireCoroutine()
	ctx := corohttp.NewContext(coro, &conn{fd: cs.fd, coro: coro}, t.product)
	ctx.Method = req.Method

	cs.coro = coro
	cs.ctx = ctx

	t.resume(cs, handlerStart(coro, t.handler, ctx, req))
}

// handlerStart binds the handler and its arguments to coro, via Reset if
// it is a recycled, ended Coroutine or Prime if it is fresh, so the same
// trampoline runs either way.
func handlerStart(coro *corocoro.Coroutine, handler HandlerFunc, ctx *corohttp.Context, req *Request) int32 {
	trampoline := func(c *corocoro.Coroutine, data any) int32 {
		args := data.(*handlerArgs)
		return handler(args.ctx, args.req)
	}
	args := &handlerArgs{ctx, req}
	if coro.Ended() {
		coro.Reset(trampoline, args)
	} else {
		coro.Prime(trampoline, args)
	}
	return 0
}

func (t *Thread) resume(cs *connState, v int32) {
	yielded := cs.coro.ResumeValue(v)

	if cs.coro.Ended() {
		if cs.ctx.Flags&corohttp.KeepAlive != 0 && cs.ctx.HasSentHeaders() {
			t.recycleCoroutine(cs.coro)
			cs.coro = nil
			cs.ctx = nil
			t.armRead(cs)
			return
		}
		t.closeConn(cs)
		return
	}

	if yielded == corohttp.Abort {
		t.closeConn(cs)
		return
	}

	t.armWrite(cs)
}

func (t *Thread) armWrite(cs *connState) {
	if cs.writeArm {
		return
	}
	cs.writeArm = true
	unix.EpollCtl(t.epfd, unix.EPOLL_CTL_MOD, cs.fd, &unix.EpollEvent{
		Events: unix.EPOLLOUT,
		Fd:     int32(cs.fd),
	})
}

func (t *Thread) armRead(cs *connState) {
	cs.writeArm = false
	unix.EpollCtl(t.epfd, unix.EPOLL_CTL_MOD, cs.fd, &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(cs.fd),
	})
}

func (t *Thread) closeConn(cs *connState) {
	if cs.coro != nil {
		cs.coro.Free()
	}
	unix.EpollCtl(t.epfd, unix.EPOLL_CTL_DEL, cs.fd, nil)
	unix.Close(cs.fd)
	delete(t.conns, cs.fd)
}

func (t *Thread) acquireCoroutine() *corocoro.Coroutine {
	if n := len(t.pool); n > 0 {
		coro := t.pool[n-1]
		t.pool = t.pool[:n-1]
		return coro
	}
	coro, ok := corocoro.New(t.switcher, t.stackSize, func(c *corocoro.Coroutine, data any) int32 {
		return 0
	}, nil)
	if !ok {
		panic("coroserver: failed to allocate coroutine")
	}
	return coro
}

func (t *Thread) recycleCoroutine(coro *corocoro.Coroutine) {
	t.pool = append(t.pool, coro)
}

// fdReader adapts a raw non-blocking fd to io.Reader for bufio.Reader.
// EAGAIN is surfaced as io.EOF-free blocking would require yielding,
// which request reading does not do (spec.md scopes request parsing out
// of the core); callers run this only after epoll reports readability.
type fdReader struct {
	fd int
}

func (r *fdReader) Read(p []byte) (int, error) {
	n, err := unix.Read(r.fd, p)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

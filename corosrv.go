// Package corosrv is a small, single-process HTTP runtime built on
// stackful coroutines: every connection runs its request handler on its
// own goroutine-backed Coroutine, synchronously, and the coroutine
// suspends (rather than blocks an OS thread) whenever it would otherwise
// wait on socket I/O.
package corosrv

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/corosrv/corosrv/corohttp"
	"github.com/corosrv/corosrv/coroserver"
	"github.com/corosrv/corosrv/internal/coromime"
	"github.com/corosrv/corosrv/internal/env"
)

// Runtime is a registry of path handlers served by a coroserver.Server.
type Runtime struct {
	addr      string
	product   string
	workers   int
	stackSize int
	env       []string

	mu       sync.Mutex
	handlers map[string]corohttp.StreamFunc
}

// Option configures a Runtime.
type Option func(*Runtime)

// ServeAddress sets the address the runtime listens on.
//
// It defaults to the value of the COROSRV_ADDR environment variable, or
// "127.0.0.1:8080" if that is unset.
func ServeAddress(addr string) Option {
	return func(rt *Runtime) { rt.addr = addr }
}

// Product sets the value of the Server: response header.
//
// It defaults to the value of the COROSRV_PRODUCT environment variable,
// or "corosrv" if that is unset.
func Product(product string) Option {
	return func(rt *Runtime) { rt.product = product }
}

// Workers sets the number of I/O threads, one SO_REUSEPORT listener and
// epoll loop each. It defaults to runtime.GOMAXPROCS(0).
func Workers(n int) Option {
	return func(rt *Runtime) { rt.workers = n }
}

// StackSize sets the scratch region size given to every Coroutine the
// runtime allocates.
func StackSize(n int) Option {
	return func(rt *Runtime) { rt.stackSize = n }
}

// Env sets the environment variables that a Runtime parses its default
// configuration from. It defaults to os.Environ().
func Env(env ...string) Option {
	return func(rt *Runtime) { rt.env = env }
}

// New creates a Runtime with no registered handlers.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		env:      os.Environ(),
		handlers: map[string]corohttp.StreamFunc{},
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.addr == "" {
		rt.addr = env.Get(rt.env, "COROSRV_ADDR")
	}
	if rt.product == "" {
		rt.product = env.Get(rt.env, "COROSRV_PRODUCT")
	}
	return rt
}

// Handle registers fn as the handler for requests whose path is an exact
// match for pattern. Registering the same pattern twice replaces the
// previous handler.
func (rt *Runtime) Handle(pattern string, fn corohttp.StreamFunc) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.handlers[pattern] = fn
}

func (rt *Runtime) lookup(pattern string) corohttp.StreamFunc {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.handlers[pattern]
}

// ErrNotFound is the sentinel error dispatch reports for unregistered
// paths; handlers never observe it directly, since dispatch turns it
// into a 404 response instead of propagating it.
var ErrNotFound = fmt.Errorf("corosrv: no handler registered for path")

// ListenAndServe starts the runtime's I/O threads and blocks until one
// of them returns an unrecoverable error.
func (rt *Runtime) ListenAndServe() error {
	server, err := coroserver.New(rt.dispatch, rt.serverOptions()...)
	if err != nil {
		return err
	}
	return server.ListenAndServe()
}

func (rt *Runtime) serverOptions() []coroserver.Option {
	var opts []coroserver.Option
	if rt.addr != "" {
		opts = append(opts, coroserver.Address(rt.addr))
	}
	if rt.product != "" {
		opts = append(opts, coroserver.Product(rt.product))
	}
	if rt.workers > 0 {
		opts = append(opts, coroserver.Workers(rt.workers))
	}
	if rt.stackSize > 0 {
		opts = append(opts, coroserver.StackSize(rt.stackSize))
	}
	return opts
}

// dispatch is the coroserver.HandlerFunc bound to the underlying Server;
// it looks up a registered path handler and runs it as ctx.Stream, or
// falls back to a default 404 when nothing matches.
//
// ctx.MIME is seeded from the request path's extension before the
// handler runs, so handlers serving static-ish content (e.g. a ".js"
// or ".css" path) don't each need to set it themselves; a handler that
// cares is free to overwrite ctx.MIME from within its StreamFunc.
func (rt *Runtime) dispatch(ctx *corohttp.Context, req *coroserver.Request) int32 {
	fn := rt.lookup(req.Path)
	if fn == nil {
		slog.Debug("corosrv: dispatch miss", "error", fmt.Errorf("%w: %s", ErrNotFound, req.Path))
		return ctx.Respond(404)
	}
	ctx.MIME = coromime.ForPath(req.Path)
	ctx.Stream = fn
	return ctx.Respond(200)
}

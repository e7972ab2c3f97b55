// Package corohttp implements the response framing layer of spec.md
// §4.2: bounded-buffer HTTP header assembly, and whole/chunked/event-
// stream response emission that cooperates with corocoro to stream
// bodies without buffering a whole response in memory.
package corohttp

import (
	"net"

	"github.com/corosrv/corosrv/corocoro"
	"github.com/corosrv/corosrv/internal/corobuf"
)

// Flags is the bitset carried on a Context, per spec.md §6.
type Flags uint8

const (
	// HTTP10 selects the "HTTP/1.0" status line instead of "HTTP/1.1".
	HTTP10 Flags = 1 << iota
	// KeepAlive emits "Connection: keep-alive" instead of "Connection: close".
	KeepAlive
	// Chunked selects chunked transfer encoding.
	Chunked
	// NoContentLength omits Content-Length. If Chunked is also set,
	// Chunked takes precedence.
	NoContentLength
	// SentHeaders marks that headers are already on the wire; further
	// header-emitting calls become no-ops.
	SentHeaders
	// AllowCORS emits the four fixed CORS headers.
	AllowCORS
)

func (f Flags) has(bit Flags) bool { return f&bit != 0 }

// Header is one additional response header key/value pair.
type Header struct {
	Key   string
	Value string
}

// StreamFunc is a handler-supplied callback used for the whole-response
// path (spec.md §4.2 mode 1). It writes into the Context's Body (or sets
// ContentLength directly) and returns an HTTP status code; a returned
// code >= 400 causes Respond to discard the body and emit a default
// error response instead.
type StreamFunc func(ctx *Context) int

// Sender is the collaborator interface corohttp depends on for actually
// placing bytes on the wire (spec.md §4.3). Implementations are expected
// to yield corocoro.Coroutine.Yield(MayResume) internally when the
// socket isn't writable, and resume transparently from the caller's
// point of view.
type Sender interface {
	Send(b []byte) (int, error)
	Writev(bufs net.Buffers) (int64, error)
}

// Context is the Go name for spec.md's "Response Context": a handler-
// owned view created by the I/O layer before the coroutine handler
// runs, and torn down after it ends. Context registers no deferred
// actions with Coro: its body buffer is ordinary Go memory reclaimed by
// the garbage collector.
type Context struct {
	// Method is the HTTP request method; only GET and POST carry a body
	// in the whole-response path (spec.md §4.2 mode 1).
	Method string

	// MIME is the response Content-Type. If empty when Respond is
	// called, the default error response path is used regardless of
	// status (spec.md §4.2).
	MIME string

	// ContentLength, if >= 0, overrides the body buffer's length as the
	// value reported in Content-Length. Used to report a stream
	// callback's declared size without buffering its output.
	ContentLength int

	// ExtraHeaders are additional header lines, emitted per the ordering
	// and override rules of spec.md §4.2 step 5.
	ExtraHeaders []Header

	// Product is the value of the Server: header. A user-supplied
	// Server header in ExtraHeaders is always dropped, per spec.md §6.
	Product string

	Body   *corobuf.Buffer
	Stream StreamFunc
	Flags  Flags

	Coro   *corocoro.Coroutine
	Sender Sender

	// overflowed marks that a header-buffer overflow already forced a
	// fallback to the default error response, so a second overflow while
	// building that fallback's own headers aborts instead of recursing.
	overflowed bool
}

// NewContext creates a Context for one request, with a body buffer sized
// to fit comfortably inside coro's scratch region alongside assembled
// headers, per spec.md's "scratch + headers always fits" requirement.
func NewContext(coro *corocoro.Coroutine, sender Sender, product string) *Context {
	ctx := &Context{
		ContentLength: -1,
		Product:       product,
		Body:          corobuf.New(len(coro.Scratch()) / 2),
		Coro:          coro,
		Sender:        sender,
	}
	return ctx
}

// HasSentHeaders reports whether headers have already been written for
// this Context.
func (ctx *Context) HasSentHeaders() bool {
	return ctx.Flags.has(SentHeaders)
}

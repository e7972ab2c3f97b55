package corohttp

import (
	"net"
	"strconv"

	"github.com/corosrv/corosrv/internal/corobuf"
)

// SetChunked begins a chunked response (spec.md §4.2 mode 2): it sets
// the Chunked flag, builds and sends headers (which will include
// Transfer-Encoding: chunked), and marks headers as sent. Subsequent
// frames are sent with SendChunk.
func (ctx *Context) SetChunked(status int) int32 {
	ctx.Flags |= Chunked
	return ctx.sendWhole(status)
}

// SendChunk formats and sends the current body buffer as one chunk
// (hex length, CRLF, bytes, CRLF), clears the buffer, and yields
// MayResume so the I/O thread can await writability before the next
// chunk. A call with an empty body emits the terminating zero-length
// chunk instead. This is also used internally by Respond to emit the
// terminator when a chunked response concludes via a final Respond call.
func (ctx *Context) SendChunk() int32 {
	return ctx.sendChunk(ctx.Body)
}

func (ctx *Context) sendChunk(body *corobuf.Buffer) int32 {
	var payload []byte
	if body != nil {
		payload = body.Bytes()
	}

	length := strconv.FormatInt(int64(len(payload)), 16)
	n, err := ctx.Sender.Writev(net.Buffers{
		[]byte(length + "\r\n"),
		payload,
		[]byte("\r\n"),
	})
	if err != nil || n < int64(len(length)+2+len(payload)+2) {
		return Abort
	}

	if body != nil {
		body.Reset()
	}

	if len(payload) == 0 {
		// Terminal chunk: nothing more will follow, don't ask to be
		// resumed for another frame.
		return MayResume
	}

	return ctx.Coro.Yield(MayResume)
}

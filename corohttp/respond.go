package corohttp

import (
	"log/slog"
	"net"

	"github.com/corosrv/corosrv/internal/corostatus"
	"github.com/corosrv/corosrv/internal/corotmpl"
)

// carriesBody reports whether method is expected to carry a response
// body in the whole-response path (spec.md §4.2 mode 1).
func carriesBody(method string) bool {
	return method == "GET" || method == "POST"
}

// Respond emits a whole response for status (spec.md §4.2 mode 1), or,
// if chunked mode was previously selected, sends the chunk terminator
// (mode 2's final step). If no MIME type is set, it falls back to the
// default error response.
func (ctx *Context) Respond(status int) int32 {
	if ctx.Flags.has(Chunked) {
		return ctx.sendChunk(nil)
	}

	if ctx.MIME == "" {
		return ctx.respondDefaultError(status)
	}

	if ctx.Stream != nil {
		stream := ctx.Stream
		// Clear before invoking: a failing callback must not be able to
		// re-enter itself via the default-error path it triggers below
		// (spec.md §9, "Stream-callback recursion").
		ctx.Stream = nil
		result := stream(ctx)
		if result >= 400 {
			return ctx.respondDefaultError(result)
		}
		status = result
	}

	return ctx.sendWhole(status)
}

func (ctx *Context) sendWhole(status int) int32 {
	if ctx.HasSentHeaders() {
		slog.Debug("corohttp: ignoring duplicate send", "status", status)
		return MayResume
	}

	headers, ok := ctx.buildHeaders(status)
	if !ok {
		if ctx.overflowed {
			// The default error response's own headers overflowed too;
			// nothing left to try but abort rather than emit a malformed
			// response (spec.md §7, "malformed bytes are never emitted").
			slog.Warn("corohttp: header buffer overflowed twice, aborting")
			return Abort
		}
		ctx.overflowed = true
		slog.Warn("corohttp: header buffer overflowed, falling back to default error", "status", status)
		return ctx.respondDefaultError(500)
	}
	ctx.Flags |= SentHeaders

	if carriesBody(ctx.Method) && ctx.Body.Len() > 0 {
		n, err := ctx.Sender.Writev(net.Buffers{headers, ctx.Body.Bytes()})
		if err != nil || n < int64(len(headers)+ctx.Body.Len()) {
			return Abort
		}
		return MayResume
	}

	n, err := ctx.Sender.Send(headers)
	if err != nil || n < len(headers) {
		return Abort
	}
	return MayResume
}

// buildHeaders assembles headers into a scratch region sized from the
// coroutine's stack, per spec.md's "scratch + headers always fits"
// requirement, returning a defensive copy safe to hand to Sender. It
// never grows the buffer: per spec.md §4.2/§7, overflow is reported to
// the caller (ok == false) rather than worked around with a heap
// allocation.
func (ctx *Context) buildHeaders(status int) ([]byte, bool) {
	scratch := ctx.Coro.Scratch()
	limit := len(scratch) / 2
	n, ok := AppendHeaders(scratch[:limit], ctx, status)
	if !ok {
		return nil, false
	}
	out := make([]byte, n)
	copy(out, scratch[:n])
	return out, true
}

// respondDefaultError renders the process-wide error template and
// dispatches it through the whole-response path, per spec.md §4.2
// ("Default error response"). It never recurses: the template render
// cannot itself trigger another Respond call.
func (ctx *Context) respondDefaultError(status int) int32 {
	entry := corostatus.Lookup(status)
	ctx.MIME = "text/html"
	ctx.Stream = nil
	ctx.Body.Reset()
	body := corotmpl.RenderError(corotmpl.ErrorVars{
		ShortMessage: entry.Reason,
		LongMessage:  entry.Description,
	})
	ctx.Body.Write(body)
	ctx.ContentLength = -1
	return ctx.sendWhole(status)
}

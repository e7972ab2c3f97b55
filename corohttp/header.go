package corohttp

import (
	"strconv"
	"strings"

	"github.com/corosrv/corosrv/internal/corodate"
	"github.com/corosrv/corosrv/internal/corostatus"
)

// corsHeaders are the four fixed CORS response headers emitted when
// AllowCORS is set (spec.md §4.2 step 8, supplemented per §6 "SUPPLEMENTED
// FEATURES": these are a fixed, non-configurable block).
var corsHeaders = [...]Header{
	{"Access-Control-Allow-Origin", "*"},
	{"Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS"},
	{"Access-Control-Allow-Headers", "Content-Type"},
	{"Access-Control-Allow-Credentials", "true"},
}

// boundedBuffer is a fixed-capacity append target: writes past its
// capacity are reported via overflowed rather than growing, matching
// spec.md's bounded-buffer header assembly.
type boundedBuffer struct {
	buf        []byte
	n          int
	overflowed bool
}

func (b *boundedBuffer) writeString(s string) {
	if b.overflowed {
		return
	}
	if b.n+len(s) > len(b.buf) {
		b.overflowed = true
		return
	}
	copy(b.buf[b.n:], s)
	b.n += len(s)
}

func (b *boundedBuffer) line(parts ...string) {
	for _, p := range parts {
		b.writeString(p)
	}
	b.writeString("\r\n")
}

// AppendHeaders assembles the response header block for ctx into buf,
// following the fixed order of spec.md §4.2, and returns the number of
// bytes written. It returns (0, false) if the assembled headers would
// not fit in buf; callers must then fall back to a default error
// response, which cannot itself overflow in normal usage.
//
// The written region is NUL-terminated for compatibility with C-string
// consumers, but the trailing NUL is not included in the returned
// length: callers must not treat the returned byte count as including a
// terminator (spec.md §9).
func AppendHeaders(buf []byte, ctx *Context, status int) (int, bool) {
	b := &boundedBuffer{buf: buf}

	// 1. Status line.
	proto := "HTTP/1.1 "
	if ctx.Flags.has(HTTP10) {
		proto = "HTTP/1.0 "
	}
	b.line(proto, strconv.Itoa(status), " ", corostatus.Reason(status))

	// 2. Framing.
	switch {
	case ctx.Flags.has(Chunked):
		b.line("Transfer-Encoding: chunked")
	case ctx.Flags.has(NoContentLength):
		// Intentionally emit nothing.
	default:
		n := ctx.ContentLength
		if n < 0 {
			n = ctx.Body.Len()
		}
		b.line("Content-Length: ", strconv.Itoa(n))
	}

	// 3. Content-Type.
	b.line("Content-Type: ", ctx.MIME)

	// 4. Connection.
	if ctx.Flags.has(KeepAlive) {
		b.line("Connection: keep-alive")
	} else {
		b.line("Connection: close")
	}

	// 5. Additional headers, only for successful responses or a 401
	// carrying WWW-Authenticate.
	var userDate, userExpires bool
	if status < 400 || status == 401 {
		for _, h := range ctx.ExtraHeaders {
			if strings.EqualFold(h.Key, "Server") {
				continue
			}
			if strings.EqualFold(h.Key, "Date") {
				userDate = true
			}
			if strings.EqualFold(h.Key, "Expires") {
				userExpires = true
			}
			b.line(h.Key, ": ", h.Value)
		}
	}

	// 6. Date, unless the caller already supplied one.
	if !userDate {
		b.line("Date: ", corodate.Now())
	}

	// 7. Expires, unless the caller already supplied one.
	if !userExpires {
		b.line("Expires: ", corodate.Now())
	}

	// 8. CORS headers.
	if ctx.Flags.has(AllowCORS) {
		for _, h := range corsHeaders {
			b.line(h.Key, ": ", h.Value)
		}
	}

	// 9. Server.
	b.line("Server: ", ctx.Product)

	// 10. Terminating blank line, plus a trailing NUL excluded from the
	// returned length.
	b.writeString("\r\n")
	n := b.n
	b.writeString("\x00")

	if b.overflowed {
		return 0, false
	}
	return n, true
}

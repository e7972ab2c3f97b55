package corohttp

import "net"

// SetEventStream begins a Server-Sent Events response (spec.md §4.2
// mode 3): MIME text/event-stream, NoContentLength set, headers sent.
func (ctx *Context) SetEventStream(status int) int32 {
	ctx.MIME = "text/event-stream"
	ctx.Flags |= NoContentLength
	return ctx.sendWhole(status)
}

// SendEvent emits one SSE frame built from the current body buffer and
// an optional event name, as up to six iovecs per spec.md §4.2 mode 3:
// an optional "event: NAME\r\n" line, an optional "data: BYTES\r\n"
// line, and a blank-line terminator. It then clears the body buffer and
// yields MayResume.
func (ctx *Context) SendEvent(name string) int32 {
	body := ctx.Body.Bytes()
	haveName := name != ""
	haveBody := len(body) > 0

	var bufs net.Buffers
	switch {
	case haveName && haveBody:
		bufs = net.Buffers{
			[]byte("event: "), []byte(name), []byte("\r\n"),
			[]byte("data: "), body, []byte("\r\n\r\n"),
		}
	case haveName:
		bufs = net.Buffers{[]byte("event: "), []byte(name), []byte("\r\n\r\n")}
	case haveBody:
		bufs = net.Buffers{[]byte("data: "), body, []byte("\r\n\r\n")}
	default:
		bufs = net.Buffers{[]byte("\r\n\r\n")}
	}

	var total int
	for _, b := range bufs {
		total += len(b)
	}
	n, err := ctx.Sender.Writev(bufs)
	if err != nil || n < int64(total) {
		return Abort
	}

	ctx.Body.Reset()
	return ctx.Coro.Yield(MayResume)
}

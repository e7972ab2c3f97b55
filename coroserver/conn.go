package coroserver

import (
	"errors"
	"net"

	"golang.org/x/sys/unix"

	"github.com/corosrv/corosrv/corocoro"
	"github.com/corosrv/corosrv/corohttp"
)

// conn implements corohttp.Sender over a non-blocking socket. It is the
// concrete realization of spec.md §4.3's send/writev collaborators: from
// the handler's point of view these calls block, but internally they
// yield MayResume on EAGAIN and rely on the owning Thread's epoll loop
// to resume the coroutine once the socket is writable again.
type conn struct {
	fd   int
	coro *corocoro.Coroutine
}

// Send writes b in full, yielding between retries when the socket isn't
// writable yet.
func (c *conn) Send(b []byte) (int, error) {
	written := 0
	for written < len(b) {
		n, err := unix.Write(c.fd, b[written:])
		if err != nil {
			if errors.Is(err, unix.EAGAIN) {
				c.coro.Yield(corohttp.MayResume)
				continue
			}
			return written, err
		}
		written += n
	}
	return written, nil
}

// Writev writes bufs in full using vectored I/O, yielding between
// retries when the socket isn't writable yet.
func (c *conn) Writev(bufs net.Buffers) (int64, error) {
	iovecs := make([][]byte, 0, len(bufs))
	for _, b := range bufs {
		if len(b) > 0 {
			iovecs = append(iovecs, b)
		}
	}

	var total int64
	for len(iovecs) > 0 {
		n, err := unix.Writev(c.fd, iovecs)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) {
				c.coro.Yield(corohttp.MayResume)
				continue
			}
			return total, err
		}
		total += int64(n)
		iovecs = dropWritten(iovecs, n)
	}
	return total, nil
}

// dropWritten removes the first n bytes from a sequence of iovecs,
// trimming or dropping entries as needed, for partial-writev retries.
func dropWritten(iovecs [][]byte, n int) [][]byte {
	for n > 0 && len(iovecs) > 0 {
		if n < len(iovecs[0]) {
			iovecs[0] = iovecs[0][n:]
			return iovecs
		}
		n -= len(iovecs[0])
		iovecs = iovecs[1:]
	}
	return iovecs
}

func (c *conn) close() error {
	return unix.Close(c.fd)
}

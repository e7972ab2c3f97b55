// Package corotest provides assertion helpers for testing corohttp
// Contexts and coroserver handlers without a real socket.
package corotest

import (
	"net"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// AssertHeaders fails t if the header block in got does not equal want
// byte-for-byte.
func AssertHeaders(t *testing.T, got, want []byte) {
	t.Helper()
	if diff := cmp.Diff(string(want), string(got)); diff != "" {
		t.Errorf("unexpected header block (-want +got):\n%s", diff)
	}
}

// AssertChunks fails t unless got is exactly the concatenation of the
// chunked-encoding frames in want (each already including its "N\r\n...\r\n"
// framing), in order.
func AssertChunks(t *testing.T, got []byte, want ...string) {
	t.Helper()
	var expect string
	for _, w := range want {
		expect += w
	}
	if diff := cmp.Diff(expect, string(got)); diff != "" {
		t.Errorf("unexpected chunk stream (-want +got):\n%s", diff)
	}
}

// AssertYield fails t unless got equals want, annotating the failure with
// name for readability in multi-yield test tables.
func AssertYield(t *testing.T, name string, got, want int32) {
	t.Helper()
	if got != want {
		t.Errorf("%s: unexpected yield value: got %d, want %d", name, got, want)
	}
}

// RecordingSender is a corohttp.Sender that appends every write to a
// single buffer, for tests that only care about the final byte stream.
type RecordingSender struct {
	Written []byte
}

func (s *RecordingSender) Send(b []byte) (int, error) {
	s.Written = append(s.Written, b...)
	return len(b), nil
}

func (s *RecordingSender) Writev(bufs net.Buffers) (int64, error) {
	var n int64
	for _, b := range bufs {
		s.Written = append(s.Written, b...)
		n += int64(len(b))
	}
	return n, nil
}

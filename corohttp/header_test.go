package corohttp_test

import (
	"strings"
	"testing"

	"github.com/corosrv/corosrv/corohttp"
	"github.com/corosrv/corosrv/internal/corobuf"
)

func newTestContext() *corohttp.Context {
	body := corobuf.New(64)
	return &corohttp.Context{
		Method:        "GET",
		MIME:          "text/plain",
		ContentLength: -1,
		Product:       "corosrv/test",
		Body:          body,
	}
}

func TestAppendHeadersSimple200(t *testing.T) {
	ctx := newTestContext()
	ctx.Body.WriteString("hi")
	ctx.Flags |= corohttp.KeepAlive

	buf := make([]byte, 512)
	n, ok := corohttp.AppendHeaders(buf, ctx, 200)
	if !ok {
		t.Fatal("AppendHeaders overflowed unexpectedly")
	}
	out := string(buf[:n])

	if !strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n") {
		t.Errorf("unexpected status line: %q", out)
	}
	if !strings.Contains(out, "Content-Length: 2\r\n") {
		t.Errorf("missing Content-Length: %q", out)
	}
	if !strings.Contains(out, "Content-Type: text/plain\r\n") {
		t.Errorf("missing Content-Type: %q", out)
	}
	if !strings.Contains(out, "Connection: keep-alive\r\n") {
		t.Errorf("missing Connection: %q", out)
	}
	if strings.Count(out, "Server:") != 1 {
		t.Errorf("expected exactly one Server header: %q", out)
	}
	if !strings.HasSuffix(out, "\r\n\r\n") {
		t.Errorf("expected header block to end with blank line: %q", out)
	}
}

func TestAppendHeadersCountsOneOfEach(t *testing.T) {
	ctx := newTestContext()
	ctx.Body.WriteString("hello")

	buf := make([]byte, 512)
	n, ok := corohttp.AppendHeaders(buf, ctx, 200)
	if !ok {
		t.Fatal("AppendHeaders overflowed unexpectedly")
	}
	out := string(buf[:n])

	for _, key := range []string{"Server:", "Date:", "Expires:", "Content-Type:"} {
		if got := strings.Count(out, key); got != 1 {
			t.Errorf("expected exactly one %s line, got %d in %q", key, got, out)
		}
	}
}

func TestAppendHeadersContentLengthPresenceRules(t *testing.T) {
	tests := []struct {
		name  string
		flags corohttp.Flags
		want  bool
	}{
		{"plain", 0, true},
		{"chunked", corohttp.Chunked, false},
		{"noContentLength", corohttp.NoContentLength, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newTestContext()
			ctx.Flags = tt.flags
			buf := make([]byte, 512)
			n, ok := corohttp.AppendHeaders(buf, ctx, 200)
			if !ok {
				t.Fatal("AppendHeaders overflowed unexpectedly")
			}
			out := string(buf[:n])
			got := strings.Contains(out, "Content-Length:")
			if got != tt.want {
				t.Errorf("Content-Length present = %v, want %v in %q", got, tt.want, out)
			}
		})
	}
}

func TestAppendHeadersOverflowReturnsFalse(t *testing.T) {
	ctx := newTestContext()
	buf := make([]byte, 8) // far too small
	n, ok := corohttp.AppendHeaders(buf, ctx, 200)
	if ok {
		t.Fatalf("expected overflow, got n=%d", n)
	}
	if n != 0 {
		t.Errorf("expected 0 on overflow, got %d", n)
	}
}

func TestAppendHeadersUserOverridePolicy(t *testing.T) {
	ctx := newTestContext()
	ctx.Flags |= corohttp.AllowCORS
	ctx.ExtraHeaders = []corohttp.Header{
		{Key: "Date", Value: "X"},
		{Key: "Server", Value: "evil/1.0"},
	}

	buf := make([]byte, 1024)
	n, ok := corohttp.AppendHeaders(buf, ctx, 200)
	if !ok {
		t.Fatal("AppendHeaders overflowed unexpectedly")
	}
	out := string(buf[:n])

	if strings.Count(out, "Date:") != 1 {
		t.Fatalf("expected exactly one Date header: %q", out)
	}
	if !strings.Contains(out, "Date: X\r\n") {
		t.Errorf("expected user-supplied Date to win: %q", out)
	}
	if strings.Count(out, "Server:") != 1 {
		t.Fatalf("expected exactly one Server header: %q", out)
	}
	if strings.Contains(out, "evil/1.0") {
		t.Errorf("user-supplied Server header leaked through: %q", out)
	}
	for _, want := range []string{
		"Access-Control-Allow-Origin",
		"Access-Control-Allow-Methods",
		"Access-Control-Allow-Headers",
		"Access-Control-Allow-Credentials",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing CORS header %q in %q", want, out)
		}
	}
}

func TestAppendHeadersAdditionalHeadersSkippedOnServerError(t *testing.T) {
	ctx := newTestContext()
	ctx.ExtraHeaders = []corohttp.Header{{Key: "X-Debug", Value: "1"}}

	buf := make([]byte, 1024)
	n, ok := corohttp.AppendHeaders(buf, ctx, 500)
	if !ok {
		t.Fatal("AppendHeaders overflowed unexpectedly")
	}
	out := string(buf[:n])
	if strings.Contains(out, "X-Debug") {
		t.Errorf("additional headers should be skipped for 5xx: %q", out)
	}
}

func TestAppendHeadersAdditionalHeadersAllowedOn401(t *testing.T) {
	ctx := newTestContext()
	ctx.ExtraHeaders = []corohttp.Header{{Key: "WWW-Authenticate", Value: "Basic"}}

	buf := make([]byte, 1024)
	n, ok := corohttp.AppendHeaders(buf, ctx, 401)
	if !ok {
		t.Fatal("AppendHeaders overflowed unexpectedly")
	}
	out := string(buf[:n])
	if !strings.Contains(out, "WWW-Authenticate: Basic") {
		t.Errorf("expected WWW-Authenticate to survive on 401: %q", out)
	}
}

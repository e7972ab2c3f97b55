package coroserver

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/corosrv/corosrv/corocoro"
	"github.com/corosrv/corosrv/internal/env"
)

// Server owns one Thread per worker, each with an independent
// SO_REUSEPORT listening socket on the same address, per spec.md §5
// ("multiple I/O threads run in parallel on separate cores; nothing ...
// is shared between threads").
type Server struct {
	addr      string
	product   string
	workers   int
	stackSize int
	handler   HandlerFunc

	threads []*Thread
}

// Option configures a Server.
type Option func(*Server)

// Address sets the TCP address to listen on. Defaults to the
// COROSRV_ADDR environment variable, or "127.0.0.1:8080".
func Address(addr string) Option {
	return func(s *Server) { s.addr = addr }
}

// Workers sets the number of I/O threads. Defaults to
// runtime.GOMAXPROCS(0).
func Workers(n int) Option {
	return func(s *Server) { s.workers = n }
}

// StackSize sets the scratch region size for every Coroutine the server
// allocates, rounded up to corocoro.MinStackSize.
func StackSize(n int) Option {
	return func(s *Server) { s.stackSize = n }
}

// Product sets the value of the Server: response header. Defaults to
// "corosrv".
func Product(product string) Option {
	return func(s *Server) { s.product = product }
}

// New creates a Server that dispatches requests to handler.
func New(handler HandlerFunc, opts ...Option) (*Server, error) {
	s := &Server{
		addr:      env.Get(os.Environ(), "COROSRV_ADDR"),
		product:   "corosrv",
		workers:   runtime.GOMAXPROCS(0),
		stackSize: corocoro.MinStackSize,
		handler:   handler,
	}
	if s.addr == "" {
		s.addr = "127.0.0.1:8080"
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.workers < 1 {
		return nil, errors.New("coroserver: Workers must be >= 1")
	}
	return s, nil
}

// ListenAndServe creates one SO_REUSEPORT listening socket and epoll
// loop per worker and blocks until one of them returns an error.
func (s *Server) ListenAndServe() error {
	errs := make(chan error, s.workers)
	var wg sync.WaitGroup

	for i := 0; i < s.workers; i++ {
		listenFd, err := s.listen()
		if err != nil {
			return fmt.Errorf("coroserver: listen: %w", err)
		}
		thread, err := newThread(listenFd, s.handler, s.product, s.stackSize)
		if err != nil {
			return fmt.Errorf("coroserver: new thread: %w", err)
		}
		s.threads = append(s.threads, thread)

		wg.Add(1)
		go func(t *Thread, id int) {
			defer wg.Done()
			slog.Info("coroserver: thread started", "id", id, "addr", s.addr)
			if err := t.run(); err != nil {
				errs <- fmt.Errorf("thread %d: %w", id, err)
			}
		}(thread, i)
	}

	go func() {
		wg.Wait()
		close(errs)
	}()

	return <-errs
}

// listen creates a non-blocking TCP listening socket bound to s.addr
// with SO_REUSEPORT, so every worker Thread can accept independently
// off the same address (kernel-level load balancing), matching the
// per-core listener pattern used elsewhere in the retrieved examples.
func (s *Server) listen() (int, error) {
	sa, err := resolveTCPAddr(s.addr)
	if err != nil {
		return -1, err
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		return -1, err
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, err
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
		unix.Close(fd)
		return -1, err
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return -1, err
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

package coroserver

import (
	"fmt"
	"net"
	"strconv"

	"golang.org/x/sys/unix"
)

// resolveTCPAddr turns a "host:port" string into a unix.Sockaddr usable
// with Bind, resolving host through the standard resolver so hostnames
// and bare IPv4 addresses both work. Only IPv4 is supported: the first
// IPv4 result is used, and a host with no IPv4 address is an error.
func resolveTCPAddr(addr string) (unix.Sockaddr, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("coroserver: invalid address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("coroserver: invalid port in %q: %w", addr, err)
	}

	if host == "" {
		return &unix.SockaddrInet4{Port: port}, nil
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return nil, fmt.Errorf("coroserver: resolve %q: %w", host, err)
	}
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			sa := &unix.SockaddrInet4{Port: port}
			copy(sa.Addr[:], v4)
			return sa, nil
		}
	}
	return nil, fmt.Errorf("coroserver: no IPv4 address found for %q", host)
}

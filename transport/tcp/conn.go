// File: transport/tcp/conn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package tcp

import (
	"fmt"
	"net"
	"time"

	"github.com/momentics/zmtpgo/api"
)

// Conn wraps a net.TCPConn so it satisfies api.Conn and exposes its
// file descriptor for platform tuning.
type Conn struct {
	*net.TCPConn
}

func newConn(tc *net.TCPConn) *Conn {
	tuneTCPConn(tc)
	return &Conn{TCPConn: tc}
}

// LocalAddr and RemoteAddr render as "tcp://host:port" to match the
// endpoint string format used throughout the socket layer.
func (c *Conn) LocalAddr() string  { return "tcp://" + c.TCPConn.LocalAddr().String() }
func (c *Conn) RemoteAddr() string { return "tcp://" + c.TCPConn.RemoteAddr().String() }

// RawFD returns the underlying file descriptor, for callers that need
// raw socket access. This dup()s
// nothing; callers must not close it.
func (c *Conn) RawFD() uintptr {
	var fd uintptr
	raw, err := c.TCPConn.SyscallConn()
	if err != nil {
		return 0
	}
	raw.Control(func(f uintptr) { fd = f })
	return fd
}

// Listener accepts inbound tcp:// connections.
type Listener struct {
	ln *net.TCPListener
}

// Listen binds addr (host:port, no scheme) for inbound connections.
func Listen(addr string) (*Listener, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tcp: resolve %q: %w", addr, err)
	}
	ln, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return nil, fmt.Errorf("tcp: listen %q: %w", addr, err)
	}
	return &Listener{ln: ln}, nil
}

// Accept blocks for the next inbound connection.
func (l *Listener) Accept() (api.Conn, error) {
	tc, err := l.ln.AcceptTCP()
	if err != nil {
		return nil, err
	}
	return newConn(tc), nil
}

// Close stops accepting new connections.
func (l *Listener) Close() error { return l.ln.Close() }

// Addr returns the bound "tcp://host:port" endpoint.
func (l *Listener) Addr() string { return "tcp://" + l.ln.Addr().String() }

// Dialer opens outbound tcp:// connections with a bounded connect
// timeout.
type Dialer struct {
	Timeout time.Duration
}

// Dial connects to addr (host:port, no scheme).
func (d Dialer) Dial(addr string) (api.Conn, error) {
	timeout := d.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	nd := net.Dialer{Timeout: timeout}
	c, err := nd.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	tc, ok := c.(*net.TCPConn)
	if !ok {
		c.Close()
		return nil, fmt.Errorf("tcp: unexpected connection type %T", c)
	}
	return newConn(tc), nil
}

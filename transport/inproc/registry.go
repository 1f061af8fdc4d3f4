// File: transport/inproc/registry.go
// Package inproc implements the inproc:// transport: zero-network,
// zero-syscall connections between sockets in the same process.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The Rust original registers a flume Sender per bound endpoint in a
// global DashMap and hands connecting clients a clone of it. Go's
// net.Pipe already gives us a full-duplex, deadline-aware in-memory
// connection pair that satisfies api.Conn directly, so the registry's
// only job is rendezvous: matching a Dial to the next Accept on the
// same endpoint name.
package inproc

import (
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/momentics/zmtpgo/api"
)

var (
	registryMu sync.Mutex
	registry   = make(map[string]*Listener)
)

// Listener accepts inbound inproc connections for one bound endpoint.
type Listener struct {
	name   string
	accept chan api.Conn
	done   chan struct{}
	once   sync.Once
}

// Bind registers endpoint (a full "inproc://name" URI) and returns a
// Listener. Binding an already-bound name returns ErrAddrInUse.
func Bind(endpoint string) (*Listener, error) {
	name, err := parseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[name]; exists {
		return nil, fmt.Errorf("%w: inproc://%s", api.ErrAddrInUse, name)
	}

	l := &Listener{
		name:   name,
		accept: make(chan api.Conn),
		done:   make(chan struct{}),
	}
	registry[name] = l
	return l, nil
}

// Accept blocks until a peer dials this endpoint.
func (l *Listener) Accept() (api.Conn, error) {
	select {
	case c := <-l.accept:
		return c, nil
	case <-l.done:
		return nil, fmt.Errorf("inproc://%s: %w", l.name, api.ErrBrokenPipe)
	}
}

// Close unregisters the endpoint and unblocks any pending Accept.
func (l *Listener) Close() error {
	registryMu.Lock()
	delete(registry, l.name)
	registryMu.Unlock()

	l.once.Do(func() { close(l.done) })
	return nil
}

// Addr returns the bound endpoint URI.
func (l *Listener) Addr() string { return "inproc://" + l.name }

// Dial connects to a bound inproc endpoint, blocking until Accept is
// called on the listener side - inproc has no backlog.
func Dial(endpoint string) (api.Conn, error) {
	name, err := parseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}

	registryMu.Lock()
	l, ok := registry[name]
	registryMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("inproc://%s: %w", name, api.ErrNotConnected)
	}

	clientSide, serverSide := net.Pipe()
	select {
	case l.accept <- wrap(serverSide, endpoint):
		return wrap(clientSide, endpoint), nil
	case <-l.done:
		clientSide.Close()
		serverSide.Close()
		return nil, fmt.Errorf("inproc://%s: %w", name, api.ErrBrokenPipe)
	}
}

func parseEndpoint(endpoint string) (string, error) {
	const prefix = "inproc://"
	if !strings.HasPrefix(endpoint, prefix) {
		return "", fmt.Errorf("%w: not an inproc endpoint: %q", api.ErrInvalidInput, endpoint)
	}
	name := strings.TrimPrefix(endpoint, prefix)
	if name == "" {
		return "", fmt.Errorf("%w: empty inproc endpoint name", api.ErrInvalidInput)
	}
	return name, nil
}

// conn adapts net.Conn (from net.Pipe) to api.Conn's string-address
// surface.
type conn struct {
	net.Conn
	endpoint string
}

func wrap(c net.Conn, endpoint string) api.Conn {
	return &conn{Conn: c, endpoint: endpoint}
}

func (c *conn) LocalAddr() string  { return c.endpoint }
func (c *conn) RemoteAddr() string { return c.endpoint }

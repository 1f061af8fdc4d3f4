// File: socket/pair.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package socket

import (
	"context"
	"sync"

	"github.com/momentics/zmtpgo/api"
)

// Pair is a one-to-one exclusive socket: at most one live connection at
// a time. Connecting or accepting a second peer replaces the first,
// matching libzmq's PAIR semantics.
type Pair struct {
	*Base

	mu   sync.Mutex
	cur  *peer
	recv chan Inbound
}

// NewPair constructs a PAIR socket.
func NewPair(opts api.SocketOptions) *Pair {
	return &Pair{
		Base: NewBase(api.Pair, opts),
		recv: make(chan Inbound, 64),
	}
}

// Connect dials endpoint and maintains the connection, reconnecting per
// the configured backoff, until ctx is canceled.
func (s *Pair) Connect(ctx context.Context, dialer api.Dialer, endpoint string) {
	s.dialer = dialer
	s.dialWithReconnect(ctx, endpoint, func(conn api.Conn) {
		s.adopt(conn, false)
	})
}

// Bind starts accepting connections on listener, replacing any prior
// peer with each new one.
func (s *Pair) Bind(ctx context.Context, listener api.Listener) {
	s.listener = listener
	s.acceptLoop(ctx, func(conn api.Conn) {
		s.adopt(conn, true)
	})
}

func (s *Pair) adopt(conn api.Conn, asServer bool) {
	p := newPeer(conn, s.newSession(asServer), s.log, func(in Inbound) {
		select {
		case s.recv <- in:
		default:
		}
	}, func(*peer) {})

	s.mu.Lock()
	if s.cur != nil {
		s.cur.close()
	}
	s.cur = p
	s.mu.Unlock()

	p.run()
}

// Send queues parts for delivery to the current peer. Returns false if
// there is no connected peer.
func (s *Pair) Send(parts [][]byte) bool {
	s.mu.Lock()
	p := s.cur
	s.mu.Unlock()
	if p == nil {
		return false
	}
	return p.send(parts)
}

// Recv blocks until a message arrives or ctx is done.
func (s *Pair) Recv(ctx context.Context) (Inbound, error) {
	select {
	case in := <-s.recv:
		return in, nil
	case <-ctx.Done():
		return Inbound{}, ctx.Err()
	}
}

// Close tears down the current peer, if any.
func (s *Pair) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur != nil {
		s.cur.close()
		s.cur = nil
	}
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

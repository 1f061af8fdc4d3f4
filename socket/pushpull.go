// File: socket/pushpull.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// PUSH fans outbound messages round robin across every connected PULL
// peer with no envelope, reusing the same self-healing cursor approach
// as hub.RouterHub's load-balancer mode. PULL is the mirror: it fans
// in from every connected PUSH peer into a single inbound queue.

package socket

import (
	"context"
	"sync"

	"github.com/momentics/zmtpgo/api"
)

// Push round-robins outbound messages across its connected peers.
type Push struct {
	*Base

	mu     sync.Mutex
	peers  []*peer
	cursor int
}

// NewPush constructs a PUSH socket.
func NewPush(opts api.SocketOptions) *Push {
	return &Push{Base: NewBase(api.Push, opts)}
}

// Connect dials endpoint and keeps it connected, adding it to the
// round-robin set for as long as it's live.
func (s *Push) Connect(ctx context.Context, dialer api.Dialer, endpoint string) {
	s.dialer = dialer
	s.dialWithReconnect(ctx, endpoint, func(conn api.Conn) {
		p := newPeer(conn, s.newSession(false), s.log, func(Inbound) {}, s.remove)
		s.add(p)
		p.run()
	})
}

// Bind accepts PULL connections indefinitely, adding each to the
// round-robin set. PUSH normally connects rather than binds, but
// libzmq allows either side to bind.
func (s *Push) Bind(ctx context.Context, listener api.Listener) {
	s.listener = listener
	s.acceptLoop(ctx, func(conn api.Conn) {
		p := newPeer(conn, s.newSession(true), s.log, func(Inbound) {}, s.remove)
		s.add(p)
		p.run()
	})
}

func (s *Push) add(p *peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peers = append(s.peers, p)
}

func (s *Push) remove(p *peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.peers {
		if cur == p {
			s.peers = append(s.peers[:i], s.peers[i+1:]...)
			if s.cursor >= len(s.peers) {
				s.cursor = 0
			}
			return
		}
	}
}

// Send delivers parts to the next peer in round-robin order. Returns
// false if no peer is connected or the chosen peer's queue is full.
func (s *Push) Send(parts [][]byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.peers)
	for attempts := 0; attempts < n; attempts++ {
		if s.cursor >= len(s.peers) {
			s.cursor = 0
		}
		p := s.peers[s.cursor]
		s.cursor = (s.cursor + 1) % len(s.peers)
		if p.send(parts) {
			return true
		}
	}
	return false
}

// Close shuts down every connected peer.
func (s *Push) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.peers {
		p.close()
	}
	s.peers = nil
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

// Pull fans in messages from every connected PUSH peer.
type Pull struct {
	*Base

	mu    sync.Mutex
	peers []*peer
	recv  chan Inbound
}

// NewPull constructs a PULL socket.
func NewPull(opts api.SocketOptions) *Pull {
	return &Pull{Base: NewBase(api.Pull, opts), recv: make(chan Inbound, 256)}
}

// Bind accepts PUSH connections indefinitely.
func (s *Pull) Bind(ctx context.Context, listener api.Listener) {
	s.listener = listener
	s.acceptLoop(ctx, func(conn api.Conn) {
		p := newPeer(conn, s.newSession(true), s.log, s.deliver, s.remove)
		s.mu.Lock()
		s.peers = append(s.peers, p)
		s.mu.Unlock()
		p.run()
	})
}

// Connect dials a PUSH endpoint (libzmq allows either side to bind).
func (s *Pull) Connect(ctx context.Context, dialer api.Dialer, endpoint string) {
	s.dialer = dialer
	s.dialWithReconnect(ctx, endpoint, func(conn api.Conn) {
		p := newPeer(conn, s.newSession(false), s.log, s.deliver, s.remove)
		s.mu.Lock()
		s.peers = append(s.peers, p)
		s.mu.Unlock()
		p.run()
	})
}

func (s *Pull) deliver(in Inbound) {
	select {
	case s.recv <- in:
	default:
	}
}

func (s *Pull) remove(p *peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.peers {
		if cur == p {
			s.peers = append(s.peers[:i], s.peers[i+1:]...)
			return
		}
	}
}

// Recv blocks until a message arrives or ctx is done.
func (s *Pull) Recv(ctx context.Context) (Inbound, error) {
	select {
	case in := <-s.recv:
		return in, nil
	case <-ctx.Done():
		return Inbound{}, ctx.Err()
	}
}

// Close shuts down every connected peer.
func (s *Pull) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.peers {
		p.close()
	}
	s.peers = nil
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

// File: socket/dealerrouter.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ROUTER prefixes every inbound message with the sending peer's
// routing identity and requires an identity-prefixed envelope on
// Send, delegating peer bookkeeping to hub.RouterHub. DEALER is the
// envelope-free, round-robin-fanout counterpart - it reuses the same
// hub in LoadBalancer mode so the self-healing round robin and the
// ROUTER's explicit-identity dispatch share one implementation.

package socket

import (
	"context"
	"fmt"
	"sync"

	"github.com/momentics/zmtpgo/api"
	"github.com/momentics/zmtpgo/hub"
)

// Router accepts many peers and routes outbound sends by explicit
// identity envelope.
type Router struct {
	*Base

	h        *hub.RouterHub
	mu       sync.Mutex
	byID     map[string]*peer
	recv     chan Inbound
	nextAnon uint64
}

// NewRouter constructs a ROUTER socket.
func NewRouter(opts api.SocketOptions) *Router {
	return &Router{
		Base: NewBase(api.Router, opts),
		h:    hub.NewRouterHub(api.RouterStandard),
		byID: make(map[string]*peer),
		recv: make(chan Inbound, 256),
	}
}

// Bind accepts DEALER/REQ connections indefinitely.
func (s *Router) Bind(ctx context.Context, listener api.Listener) {
	s.listener = listener
	s.acceptLoop(ctx, func(conn api.Conn) { s.adopt(conn) })
}

func (s *Router) adopt(conn api.Conn) {
	var p *peer
	registered := false

	p = newPeer(conn, s.newSession(true), s.log, func(in Inbound) {
		if !registered {
			id := in.RoutingID
			if id == "" {
				s.mu.Lock()
				s.nextAnon++
				id = fmt.Sprintf("anon-%d", s.nextAnon)
				s.mu.Unlock()
			}
			ch, ok := s.h.PeerUp(id, s.opts.RouterHandover)
			if !ok {
				// router_handover is off and id is already owned by a
				// live connection: reject this one and keep the
				// existing peer, per §4.5.7.
				p.close()
				return
			}
			p.routingID = id
			s.mu.Lock()
			s.byID[id] = p
			s.mu.Unlock()
			go s.pump(id, ch, p)
			registered = true
		}
		envelope := append([][]byte{[]byte(p.routingID)}, in.Parts...)
		select {
		case s.recv <- Inbound{RoutingID: p.routingID, Parts: envelope}:
		default:
		}
	}, func(pr *peer) {
		s.mu.Lock()
		delete(s.byID, pr.routingID)
		s.mu.Unlock()
		s.h.PeerDown(pr.routingID)
	})

	p.run()
}

func (s *Router) pump(id string, ch <-chan hub.PeerCmd, p *peer) {
	for cmd := range ch {
		if cmd.Close {
			p.close()
			return
		}
		p.send(cmd.Body)
	}
}

// Send routes parts, whose first frame must be the target routing
// identity, optionally followed by an empty delimiter.
func (s *Router) Send(parts [][]byte) error {
	if len(parts) == 0 {
		return fmt.Errorf("%w: ROUTER send needs an identity frame", api.ErrInvalidInput)
	}
	return s.h.RouteOutbound(parts, s.opts.RouterMandatory)
}

// Recv blocks for the next inbound message, prefixed with the sending
// peer's routing identity.
func (s *Router) Recv(ctx context.Context) (Inbound, error) {
	select {
	case in := <-s.recv:
		return in, nil
	case <-ctx.Done():
		return Inbound{}, ctx.Err()
	}
}

// Close tears down the hub and the listener.
func (s *Router) Close() error {
	s.h.Close()
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

// Dealer fans outbound messages round robin across connected peers
// with no envelope, and delivers inbound messages as-is.
type Dealer struct {
	*Base

	h    *hub.RouterHub
	mu   sync.Mutex
	next uint64
	recv chan Inbound
}

// NewDealer constructs a DEALER socket.
func NewDealer(opts api.SocketOptions) *Dealer {
	return &Dealer{
		Base: NewBase(api.Dealer, opts),
		h:    hub.NewRouterHub(api.RouterLoadBalancer),
		recv: make(chan Inbound, 256),
	}
}

// Connect dials endpoint and keeps it in the hub's round-robin set.
func (s *Dealer) Connect(ctx context.Context, dialer api.Dialer, endpoint string) {
	s.dialer = dialer
	s.dialWithReconnect(ctx, endpoint, func(conn api.Conn) {
		s.mu.Lock()
		s.next++
		id := fmt.Sprintf("dealer-%d", s.next)
		s.mu.Unlock()

		p := newPeer(conn, s.newSession(false), s.log, func(in Inbound) {
			select {
			case s.recv <- in:
			default:
			}
		}, func(*peer) { s.h.PeerDown(id) })

		// id is freshly generated per connection, so handover never
		// actually contends; true simply avoids a spurious rejection.
		ch, _ := s.h.PeerUp(id, true)
		go func() {
			for cmd := range ch {
				if cmd.Close {
					p.close()
					return
				}
				p.send(cmd.Body)
			}
		}()

		p.run()
	})
}

// Send fans parts to the next live peer in round-robin order.
func (s *Dealer) Send(parts [][]byte) error {
	return s.h.RouteOutbound(parts, false)
}

// Recv blocks for the next inbound message.
func (s *Dealer) Recv(ctx context.Context) (Inbound, error) {
	select {
	case in := <-s.recv:
		return in, nil
	case <-ctx.Done():
		return Inbound{}, ctx.Err()
	}
}

// Close tears down the hub.
func (s *Dealer) Close() error {
	s.h.Close()
	return nil
}

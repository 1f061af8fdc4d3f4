// File: socket/pubsub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// SUBSCRIBE/CANCEL travel as ordinary one-part messages whose first
// byte is 1 (subscribe) or 0 (cancel) followed by the topic prefix,
// matching libzmq's wire-level PUB/SUB convention. PUB delegates
// tracking and fan-out to hub.PubSubHub; XPUB additionally surfaces
// subscribe/cancel notifications to the application the way libzmq's
// XPUB socket does, instead of swallowing them like PUB.

package socket

import (
	"context"
	"fmt"
	"sync"

	"github.com/momentics/zmtpgo/api"
	"github.com/momentics/zmtpgo/hub"
)

const (
	subFlagCancel    = 0
	subFlagSubscribe = 1
)

func encodeSubscribe(prefix []byte) [][]byte {
	body := make([]byte, 1+len(prefix))
	body[0] = subFlagSubscribe
	copy(body[1:], prefix)
	return [][]byte{body}
}

func encodeCancel(prefix []byte) [][]byte {
	body := make([]byte, 1+len(prefix))
	body[0] = subFlagCancel
	copy(body[1:], prefix)
	return [][]byte{body}
}

func decodeSubControl(parts [][]byte) (subscribe bool, prefix []byte, ok bool) {
	if len(parts) != 1 || len(parts[0]) == 0 {
		return false, nil, false
	}
	return parts[0][0] == subFlagSubscribe, parts[0][1:], true
}

// pubBase is shared by Pub and XPub: both accept many SUB/XSUB peers
// and fan out published messages through the same hub.
type pubBase struct {
	*Base

	h         *hub.PubSubHub
	mu        sync.Mutex
	epochNext uint64
	notify    chan Inbound // XPub only; nil for Pub
}

func newPubBase(t api.SocketType, opts api.SocketOptions, withNotify bool) *pubBase {
	b := &pubBase{Base: NewBase(t, opts), h: hub.NewPubSubHub()}
	if withNotify {
		b.notify = make(chan Inbound, 256)
	}
	return b
}

func (s *pubBase) bind(ctx context.Context, listener api.Listener) {
	s.listener = listener
	s.acceptLoop(ctx, func(conn api.Conn) { s.adopt(conn) })
}

func (s *pubBase) adopt(conn api.Conn) {
	s.mu.Lock()
	s.epochNext++
	epoch := s.epochNext
	id := fmt.Sprintf("peer-%d", epoch)
	s.mu.Unlock()

	p := newPeer(conn, s.newSession(true), s.log, func(in Inbound) {
		subscribe, prefix, ok := decodeSubControl(in.Parts)
		if !ok {
			return
		}
		if subscribe {
			s.h.Subscribe(id, prefix)
		} else {
			s.h.Unsubscribe(id, prefix)
		}
		if s.notify != nil {
			select {
			case s.notify <- in:
			default:
			}
		}
	}, func(pr *peer) {
		s.h.PeerDown(id, epoch)
	})
	p.routingID = id

	ch := s.h.PeerUp(id, epoch)
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
}

// publish fans a multipart message out to every subscriber whose
// prefix matches parts[0].
func (s *pubBase) publish(parts [][]byte) {
	s.h.Publish(parts)
}

func (s *pubBase) close() error {
	s.h.Close()
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

// Pub publishes messages to every subscribed SUB/XSUB peer. It
// swallows subscribe/cancel control frames rather than surfacing them.
type Pub struct{ *pubBase }

// NewPub constructs a PUB socket.
func NewPub(opts api.SocketOptions) *Pub {
	return &Pub{pubBase: newPubBase(api.Pub, opts, false)}
}

// Bind accepts SUB/XSUB connections indefinitely.
func (s *Pub) Bind(ctx context.Context, listener api.Listener) { s.bind(ctx, listener) }

// Publish fans parts out to matching subscribers. parts[0] is the topic.
func (s *Pub) Publish(parts [][]byte) { s.publish(parts) }

// Close tears down every peer.
func (s *Pub) Close() error { return s.close() }

// XPub is PUB plus visibility into subscribe/cancel events, delivered
// to the application via Recv the way libzmq's XPUB socket does.
type XPub struct{ *pubBase }

// NewXPub constructs an XPUB socket.
func NewXPub(opts api.SocketOptions) *XPub {
	return &XPub{pubBase: newPubBase(api.XPub, opts, true)}
}

// Bind accepts SUB/XSUB connections indefinitely.
func (s *XPub) Bind(ctx context.Context, listener api.Listener) { s.bind(ctx, listener) }

// Publish fans parts out to matching subscribers.
func (s *XPub) Publish(parts [][]byte) { s.publish(parts) }

// Recv blocks for the next subscribe/cancel notification.
func (s *XPub) Recv(ctx context.Context) (Inbound, error) {
	select {
	case in := <-s.notify:
		return in, nil
	case <-ctx.Done():
		return Inbound{}, ctx.Err()
	}
}

// Close tears down every peer.
func (s *XPub) Close() error { return s.close() }

// subBase is shared by Sub and XSub: both connect to PUB/XPUB peers,
// remember the locally-requested prefixes, and resend them to every
// new peer so a reconnect doesn't silently drop subscriptions.
type subBase struct {
	*Base

	mu       sync.Mutex
	prefixes map[string][]byte
	peers    []*peer
	recv     chan Inbound
}

func newSubBase(t api.SocketType, opts api.SocketOptions) *subBase {
	recvCap := 256
	if opts.Conflate {
		// Only the latest message is ever kept, so the channel itself
		// is the one-slot conflate buffer.
		recvCap = 1
	}
	return &subBase{
		Base:     NewBase(t, opts),
		prefixes: make(map[string][]byte),
		recv:     make(chan Inbound, recvCap),
	}
}

// deliverConflated replaces whatever is currently buffered with in,
// instead of dropping in when the buffer is full, matching
// ZMQ_CONFLATE's "keep only the latest" contract.
func (s *subBase) deliverConflated(in Inbound) {
	for {
		select {
		case <-s.recv:
		default:
		}
		select {
		case s.recv <- in:
			return
		default:
		}
	}
}

func (s *subBase) connect(ctx context.Context, dialer api.Dialer, endpoint string) {
	s.dialer = dialer
	deliver := func(in Inbound) {
		select {
		case s.recv <- in:
		default:
		}
	}
	if s.opts.Conflate {
		deliver = s.deliverConflated
	}
	s.dialWithReconnect(ctx, endpoint, func(conn api.Conn) {
		p := newPeer(conn, s.newSession(false), s.log, deliver, s.remove)

		s.mu.Lock()
		s.peers = append(s.peers, p)
		for _, prefix := range s.prefixes {
			p.send(encodeSubscribe(prefix))
		}
		s.mu.Unlock()

		p.run()
	})
}

func (s *subBase) remove(p *peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.peers {
		if cur == p {
			s.peers = append(s.peers[:i], s.peers[i+1:]...)
			return
		}
	}
}

func (s *subBase) subscribe(prefix []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefixes[string(prefix)] = append([]byte(nil), prefix...)
	for _, p := range s.peers {
		p.send(encodeSubscribe(prefix))
	}
}

func (s *subBase) unsubscribe(prefix []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.prefixes, string(prefix))
	for _, p := range s.peers {
		p.send(encodeCancel(prefix))
	}
}

func (s *subBase) recvMsg(ctx context.Context) (Inbound, error) {
	select {
	case in := <-s.recv:
		return in, nil
	case <-ctx.Done():
		return Inbound{}, ctx.Err()
	}
}

func (s *subBase) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.peers {
		p.close()
	}
	s.peers = nil
	return nil
}

// Sub receives messages matching its subscribed prefixes from PUB/XPUB
// peers.
type Sub struct{ *subBase }

// NewSub constructs a SUB socket.
func NewSub(opts api.SocketOptions) *Sub { return &Sub{subBase: newSubBase(api.Sub, opts)} }

// Connect dials a PUB/XPUB endpoint.
func (s *Sub) Connect(ctx context.Context, dialer api.Dialer, endpoint string) {
	s.connect(ctx, dialer, endpoint)
}

// Subscribe requests messages whose topic starts with prefix.
func (s *Sub) Subscribe(prefix []byte) { s.subscribe(prefix) }

// Unsubscribe withdraws interest in prefix.
func (s *Sub) Unsubscribe(prefix []byte) { s.unsubscribe(prefix) }

// Recv blocks for the next matching message.
func (s *Sub) Recv(ctx context.Context) (Inbound, error) { return s.recvMsg(ctx) }

// Close shuts down every connected peer.
func (s *Sub) Close() error { return s.close() }

// XSub is SUB with its subscribe/cancel control frames available for
// manual construction, mirroring libzmq's XSUB socket. zmtpgo's Sub
// and XSub only differ in which caller is expected to build the
// control frame; SendRaw lets an XSUB caller send an arbitrary control
// or data frame directly.
type XSub struct{ *subBase }

// NewXSub constructs an XSUB socket.
func NewXSub(opts api.SocketOptions) *XSub { return &XSub{subBase: newSubBase(api.XSub, opts)} }

// Connect dials a PUB/XPUB endpoint.
func (s *XSub) Connect(ctx context.Context, dialer api.Dialer, endpoint string) {
	s.connect(ctx, dialer, endpoint)
}

// SendRaw transmits parts verbatim to every connected peer, e.g. a
// manually constructed SUBSCRIBE frame.
func (s *XSub) SendRaw(parts [][]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.peers {
		p.send(parts)
	}
}

// Recv blocks for the next message. XSUB does no filtering of its own;
// the publisher forwards only messages matching a subscription sent
// through SendRaw.
func (s *XSub) Recv(ctx context.Context) (Inbound, error) { return s.recvMsg(ctx) }

// Close shuts down every connected peer.
func (s *XSub) Close() error { return s.close() }

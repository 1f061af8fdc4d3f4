// File: socket/reqrep.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// REQ enforces strict send/recv alternation and prefixes every request
// with an empty delimiter frame, matching libzmq's wire contract so a
// REP or ROUTER peer can strip the envelope uniformly. With
// req_correlate set, REQ also prepends a monotonically increasing
// request-id frame ahead of the delimiter and matches it against every
// reply, silently dropping and continuing past anything stale instead
// of handing a mismatched reply to the caller. REP never inspects the
// envelope's meaning: it just captures every frame up to and including
// the first empty delimiter on Recv and replays it verbatim on Send,
// so a correlate id frame round-trips transparently.

package socket

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/momentics/zmtpgo/api"
)

// Req is a strict request/reply socket: Send then Recv, alternating.
// With ReqRelaxed set, a new Send is allowed to abandon an outstanding
// request rather than erroring.
type Req struct {
	*Base

	mu           sync.Mutex
	peers        []*peer
	cursor       int
	awaitingRecv bool
	lastPeer     *peer
	recv         chan Inbound

	nextReqID uint64
	pendingID []byte
}

// NewReq constructs a REQ socket.
func NewReq(opts api.SocketOptions) *Req {
	return &Req{Base: NewBase(api.Req, opts), recv: make(chan Inbound, 16)}
}

// Connect dials endpoint and adds it to the round-robin peer set.
func (s *Req) Connect(ctx context.Context, dialer api.Dialer, endpoint string) {
	s.dialer = dialer
	s.dialWithReconnect(ctx, endpoint, func(conn api.Conn) {
		p := newPeer(conn, s.newSession(false), s.log, s.deliver, s.remove)
		s.mu.Lock()
		s.peers = append(s.peers, p)
		s.mu.Unlock()
		p.run()
	})
}

func (s *Req) deliver(in Inbound) {
	select {
	case s.recv <- in:
	default:
	}
}

func (s *Req) remove(p *peer) {
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

// Send issues a new request: an empty delimiter followed by body, or
// with req_correlate set, a request-id frame then the delimiter then
// body. It fails with ErrInvalidInput if a reply is still outstanding,
// unless ReqRelaxed is set.
func (s *Req) Send(body [][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.awaitingRecv && !s.opts.ReqRelaxed {
		return fmt.Errorf("%w: REQ send before matching recv", api.ErrInvalidInput)
	}
	if len(s.peers) == 0 {
		return api.ErrNotConnected
	}

	if s.cursor >= len(s.peers) {
		s.cursor = 0
	}
	p := s.peers[s.cursor]
	s.cursor = (s.cursor + 1) % len(s.peers)

	var parts [][]byte
	if s.opts.ReqCorrelate {
		s.nextReqID++
		id := make([]byte, 8)
		binary.BigEndian.PutUint64(id, s.nextReqID)
		s.pendingID = id
		parts = append([][]byte{id, {}}, body...)
	} else {
		s.pendingID = nil
		parts = append([][]byte{{}}, body...)
	}

	if !p.send(parts) {
		return api.ErrBrokenPipe
	}
	s.lastPeer = p
	s.awaitingRecv = true
	return nil
}

// Recv blocks for the matching reply. With req_correlate set, it
// drops and keeps waiting past any reply whose leading request-id
// frame doesn't match the outstanding request, rather than handing a
// stale reply to the caller; otherwise it just strips the leading
// delimiter frame.
func (s *Req) Recv(ctx context.Context) ([][]byte, error) {
	for {
		select {
		case in := <-s.recv:
			s.mu.Lock()
			correlate := s.opts.ReqCorrelate
			wantID := s.pendingID
			s.mu.Unlock()

			if correlate {
				if len(in.Parts) < 2 || !bytes.Equal(in.Parts[0], wantID) {
					continue
				}
				s.mu.Lock()
				s.awaitingRecv = false
				s.mu.Unlock()
				return in.Parts[2:], nil
			}

			s.mu.Lock()
			s.awaitingRecv = false
			s.mu.Unlock()
			if len(in.Parts) > 0 && len(in.Parts[0]) == 0 {
				return in.Parts[1:], nil
			}
			return in.Parts, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close shuts down every connected peer.
func (s *Req) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.peers {
		p.close()
	}
	s.peers = nil
	return nil
}

// Rep answers requests in the order they're received, replying on
// whichever peer delivered the pending request.
type Rep struct {
	*Base

	mu              sync.Mutex
	peers           map[*peer]struct{}
	pending         *peer
	pendingEnvelope [][]byte
	recv            chan Inbound
}

// NewRep constructs a REP socket.
func NewRep(opts api.SocketOptions) *Rep {
	return &Rep{Base: NewBase(api.Rep, opts), peers: make(map[*peer]struct{}), recv: make(chan Inbound, 64)}
}

// Bind accepts REQ (or DEALER) connections indefinitely.
func (s *Rep) Bind(ctx context.Context, listener api.Listener) {
	s.listener = listener
	s.acceptLoop(ctx, func(conn api.Conn) {
		var p *peer
		p = newPeer(conn, s.newSession(true), s.log, func(in Inbound) {
			envelope, body := splitEnvelope(in.Parts)
			s.mu.Lock()
			s.pending = p
			s.pendingEnvelope = envelope
			s.mu.Unlock()
			select {
			case s.recv <- Inbound{RoutingID: in.RoutingID, Parts: body}:
			default:
			}
		}, s.remove)
		s.mu.Lock()
		s.peers[p] = struct{}{}
		s.mu.Unlock()
		p.run()
	})
}

func (s *Rep) remove(p *peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.peers, p)
	if s.pending == p {
		s.pending = nil
	}
}

// Recv blocks for the next request; the envelope (everything up to
// and including the delimiter) has already been stripped and stashed
// for Send to replay.
func (s *Rep) Recv(ctx context.Context) ([][]byte, error) {
	select {
	case in := <-s.recv:
		return in.Parts, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Send replies to the most recently received request on the peer that
// sent it, replaying whatever envelope frames preceded the request's
// delimiter (e.g. a req_correlate request-id frame) verbatim.
func (s *Rep) Send(body [][]byte) error {
	s.mu.Lock()
	p := s.pending
	envelope := s.pendingEnvelope
	s.pending = nil
	s.pendingEnvelope = nil
	s.mu.Unlock()

	if p == nil {
		return fmt.Errorf("%w: REP send with no pending request", api.ErrInvalidInput)
	}
	if len(envelope) == 0 {
		envelope = [][]byte{{}}
	}
	parts := append(append([][]byte{}, envelope...), body...)
	if !p.send(parts) {
		return api.ErrBrokenPipe
	}
	return nil
}

// splitEnvelope separates the routing envelope - every frame up to
// and including the first empty delimiter - from the message body, so
// Rep can echo back whatever envelope frames REQ prepended without
// needing to know their meaning.
func splitEnvelope(parts [][]byte) (envelope, body [][]byte) {
	for i, part := range parts {
		if len(part) == 0 {
			return parts[:i+1], parts[i+1:]
		}
	}
	return nil, parts
}

// Close shuts down every connected peer.
func (s *Rep) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for p := range s.peers {
		p.close()
	}
	s.peers = make(map[*peer]struct{})
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

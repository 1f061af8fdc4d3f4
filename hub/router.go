// File: hub/router.go
// Package hub implements the ROUTER and PUB/SUB peer-fanout
// supervisors shared by every socket that talks to more than one
// connection at a time.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The original actor coordinates peers over channels inside its own
// task, reached by flume senders from peer actors and the user socket.
// zmtpgo's RouterHub keeps the same routing-table algorithm (self-
// healing round robin, standard vs load-balancer dispatch) but drops
// the actor-loop indirection: callers already run on their own
// goroutine per connection, so the hub is a plain mutex-guarded struct
// they call into directly. PeerCmd dispatch still goes out over a
// per-peer channel, since that's what decouples a slow peer's queue
// from the hub's critical section.
package hub

import (
	"sync"

	"github.com/momentics/zmtpgo/api"
)

// PeerCmd is sent to a peer's outbound goroutine.
type PeerCmd struct {
	Body  [][]byte
	Close bool
}

type peerEntry struct {
	ch chan PeerCmd
}

// RouterHub tracks live ROUTER peers by routing identity and fans out
// sends either by explicit identity (Standard) or round robin
// (LoadBalancer).
type RouterHub struct {
	mu       sync.Mutex
	behavior api.RouterBehavior

	peers   map[string]*peerEntry
	lbList  []string
	lbCursor int
}

// NewRouterHub returns an empty hub for the given dispatch behavior.
func NewRouterHub(behavior api.RouterBehavior) *RouterHub {
	return &RouterHub{
		behavior: behavior,
		peers:    make(map[string]*peerEntry),
	}
}

// PeerUp registers a newly connected peer under routingID, returning
// the channel its outbound goroutine should drain. When a connection
// already owns routingID, handover (ZMQ_ROUTER_HANDOVER, §4.5.7)
// decides the outcome: false rejects the new connection outright
// (ok=false, caller must close it and keep the existing one); true
// takes the identity over, carrying any outbound commands still
// queued for the old peer onto the new one before telling the old
// peer's pump goroutine to close.
func (h *RouterHub) PeerUp(routingID string, handover bool) (ch <-chan PeerCmd, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, exists := h.peers[routingID]; exists {
		if !handover {
			return nil, false
		}

		newCh := make(chan PeerCmd, 64)
		drainPending(existing.ch, newCh)
		select {
		case existing.ch <- PeerCmd{Close: true}:
		default:
		}

		h.peers[routingID] = &peerEntry{ch: newCh}
		return newCh, true
	}

	newCh := make(chan PeerCmd, 64)
	h.peers[routingID] = &peerEntry{ch: newCh}
	h.lbList = append(h.lbList, routingID)
	return newCh, true
}

// drainPending moves every command already buffered in old onto new,
// preserving order, so a handover doesn't silently drop outbound
// messages queued before the new connection took over.
func drainPending(old, new chan PeerCmd) {
	for {
		select {
		case cmd := <-old:
			if cmd.Close {
				continue
			}
			select {
			case new <- cmd:
			default:
			}
		default:
			return
		}
	}
}

// PeerDown unregisters routingID, e.g. on disconnect.
func (h *RouterHub) PeerDown(routingID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.peers, routingID)
	h.removeFromLBList(routingID)
}

func (h *RouterHub) removeFromLBList(routingID string) {
	for i, id := range h.lbList {
		if id == routingID {
			h.lbList = append(h.lbList[:i], h.lbList[i+1:]...)
			if h.lbCursor >= len(h.lbList) {
				h.lbCursor = 0
			}
			return
		}
	}
}

// pickRRPeer returns the next live routing id in round-robin order,
// repairing stale lbList entries (peers that went down without
// PeerDown running first) as it goes.
func (h *RouterHub) pickRRPeer() (string, bool) {
	maxAttempts := len(h.lbList)
	for attempts := 0; len(h.lbList) > 0 && attempts <= maxAttempts; attempts++ {
		if h.lbCursor >= len(h.lbList) {
			h.lbCursor = 0
		}

		id := h.lbList[h.lbCursor]
		h.lbCursor = (h.lbCursor + 1) % len(h.lbList)

		if _, ok := h.peers[id]; ok {
			return id, true
		}

		h.removeFromLBList(id)
	}
	return "", false
}

// RouteOutbound dispatches parts to a peer according to the hub's
// behavior. In Standard mode, parts must start with [identity,
// (empty)]; an unknown identity is dropped unless mandatory is set, in
// which case ErrHostUnreachable is returned. In LoadBalancer mode,
// parts is body-only and the hub picks the next peer itself.
func (h *RouterHub) RouteOutbound(parts [][]byte, mandatory bool) error {
	if len(parts) == 0 {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.behavior {
	case api.RouterLoadBalancer:
		id, ok := h.pickRRPeer()
		if !ok {
			if mandatory {
				return api.ErrHostUnreachable
			}
			return nil
		}
		return h.send(id, parts, mandatory)

	default: // api.RouterStandard
		targetID := string(parts[0])
		body := parts[1:]
		if len(body) > 0 && len(body[0]) == 0 {
			body = body[1:]
		}
		return h.send(targetID, body, mandatory)
	}
}

func (h *RouterHub) send(routingID string, body [][]byte, mandatory bool) error {
	peer, ok := h.peers[routingID]
	if !ok {
		if mandatory {
			return api.ErrHostUnreachable
		}
		return nil
	}

	select {
	case peer.ch <- PeerCmd{Body: body}:
		return nil
	default:
		// Peer's outbound queue is full; libzmq would apply HWM
		// backpressure here. zmtpgo drops rather than block the hub
		// lock, matching router_mandatory's "never block" contract.
		if mandatory {
			return api.ErrHostUnreachable
		}
		return nil
	}
}

// Close signals every peer's outbound goroutine to stop.
func (h *RouterHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, p := range h.peers {
		select {
		case p.ch <- PeerCmd{Close: true}:
		default:
		}
	}
}

// PeerCount returns the number of live peers, for metrics.
func (h *RouterHub) PeerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

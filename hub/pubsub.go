// File: hub/pubsub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// PubSubHub supervises every peer of a PUB or XPUB socket: it keeps a
// stable RoutingID<->PeerKey mapping, tracks each peer's subscriptions
// in a subscription.Index, and fans out published messages to matching
// peers. Like RouterHub, this drops the Rust original's actor-loop
// indirection in favor of direct mutex-guarded methods; the epoch-
// gated PeerDown logic it uses to avoid a ghost-peer race is kept
// exactly, since that invariant is the whole point of tracking epochs.
package hub

import (
	"sync"

	"github.com/momentics/zmtpgo/subscription"
)

// PubSubHub fans out published messages to subscribed peers.
type PubSubHub struct {
	mu sync.Mutex

	index *subscription.Index

	ridToKey map[string]subscription.PeerKey
	keyToRid map[subscription.PeerKey]string

	peers map[subscription.PeerKey]pubsubPeer

	nextKey subscription.PeerKey
}

type pubsubPeer struct {
	epoch uint64
	ch    chan PeerCmd
}

// NewPubSubHub returns an empty hub.
func NewPubSubHub() *PubSubHub {
	return &PubSubHub{
		index:    subscription.New(),
		ridToKey: make(map[string]subscription.PeerKey),
		keyToRid: make(map[subscription.PeerKey]string),
		peers:    make(map[subscription.PeerKey]pubsubPeer),
		nextKey:  1,
	}
}

// PeerUp registers routingID at the given epoch and returns the
// channel its outbound goroutine should drain. epoch must be a value
// unique to this particular connection instance (e.g. a counter
// incremented per reconnect), so a PeerDown from a since-replaced
// connection can't evict the new one.
func (h *PubSubHub) PeerUp(routingID string, epoch uint64) <-chan PeerCmd {
	h.mu.Lock()
	defer h.mu.Unlock()

	key, ok := h.ridToKey[routingID]
	if !ok {
		key = h.nextKey
		h.nextKey++
		h.ridToKey[routingID] = key
		h.keyToRid[key] = routingID
	}

	ch := make(chan PeerCmd, 64)
	h.peers[key] = pubsubPeer{epoch: epoch, ch: ch}
	return ch
}

// PeerDown unregisters the peer at routingID, but only if epoch
// matches the epoch it was registered with - a stale event from a
// connection that already got replaced is ignored.
func (h *PubSubHub) PeerDown(routingID string, epoch uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key, ok := h.ridToKey[routingID]
	if !ok {
		return
	}
	current, ok := h.peers[key]
	if !ok || current.epoch != epoch {
		return
	}

	delete(h.peers, key)
	h.index.RemovePeerEverywhere(key)
}

// Subscribe records routingID's interest in prefix.
func (h *PubSubHub) Subscribe(routingID string, prefix []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key, ok := h.ridToKey[routingID]
	if !ok {
		return
	}
	if _, ok := h.peers[key]; !ok {
		return
	}
	h.index.Subscribe(key, prefix)
}

// Unsubscribe removes routingID's interest in prefix.
func (h *PubSubHub) Unsubscribe(routingID string, prefix []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key, ok := h.ridToKey[routingID]
	if !ok {
		return
	}
	h.index.Unsubscribe(key, prefix)
}

// Publish fans a multipart message - frame 0 is the topic - out to
// every peer whose subscription matches.
func (h *PubSubHub) Publish(parts [][]byte) {
	if len(parts) == 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.index.Empty() {
		return
	}

	keys := h.index.MatchTopic(parts[0])
	for _, key := range keys {
		peer, ok := h.peers[key]
		if !ok {
			continue
		}
		select {
		case peer.ch <- PeerCmd{Body: parts}:
		default:
			// Slow subscriber: drop rather than stall every other
			// subscriber behind the hub lock.
		}
	}
}

// Close signals every peer's outbound goroutine to stop.
func (h *PubSubHub) Close() {
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
func (h *PubSubHub) PeerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

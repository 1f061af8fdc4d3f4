// File: subscription/index.go
// Package subscription implements the PUB/SUB subscription index: a
// sorted-by-prefix table with O(log N) lookup on subscribe/unsubscribe
// (plus an O(N) slice shift to insert or remove an entry) and an
// early-exit prefix scan for the publish hot path.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package subscription

import (
	"bytes"
	"sort"
)

// PeerKey compactly identifies a peer connection; the pubsub hub owns
// the mapping from PeerKey to an actual routing identity.
type PeerKey uint64

type entry struct {
	prefix []byte
	peers  []PeerKey
}

// Index holds every active subscription, sorted lexicographically by
// prefix.
type Index struct {
	entries []entry
}

// New returns an empty Index.
func New() *Index {
	return &Index{}
}

// Empty reports whether there are no subscriptions at all.
func (idx *Index) Empty() bool { return len(idx.entries) == 0 }

func (idx *Index) search(prefix []byte) (int, bool) {
	i := sort.Search(len(idx.entries), func(i int) bool {
		return bytes.Compare(idx.entries[i].prefix, prefix) >= 0
	})
	if i < len(idx.entries) && bytes.Equal(idx.entries[i].prefix, prefix) {
		return i, true
	}
	return i, false
}

// Subscribe adds peer's interest in prefix. Subscribing the same peer
// to the same prefix twice is a no-op.
func (idx *Index) Subscribe(peer PeerKey, prefix []byte) {
	i, found := idx.search(prefix)
	if found {
		for _, p := range idx.entries[i].peers {
			if p == peer {
				return
			}
		}
		idx.entries[i].peers = append(idx.entries[i].peers, peer)
		return
	}

	cp := make([]byte, len(prefix))
	copy(cp, prefix)

	idx.entries = append(idx.entries, entry{})
	copy(idx.entries[i+1:], idx.entries[i:])
	idx.entries[i] = entry{prefix: cp, peers: []PeerKey{peer}}
}

// Unsubscribe removes peer's interest in prefix. If that was the last
// peer on the prefix, the entry is dropped entirely.
func (idx *Index) Unsubscribe(peer PeerKey, prefix []byte) {
	i, found := idx.search(prefix)
	if !found {
		return
	}

	peers := idx.entries[i].peers
	for j, p := range peers {
		if p == peer {
			peers[j] = peers[len(peers)-1]
			idx.entries[i].peers = peers[:len(peers)-1]
			break
		}
	}

	if len(idx.entries[i].peers) == 0 {
		idx.entries = append(idx.entries[:i], idx.entries[i+1:]...)
	}
}

// RemovePeerEverywhere drops peer from every prefix it subscribed to,
// used when a peer disconnects.
func (idx *Index) RemovePeerEverywhere(peer PeerKey) {
	i := 0
	for i < len(idx.entries) {
		peers := idx.entries[i].peers
		removed := false
		for j, p := range peers {
			if p == peer {
				peers[j] = peers[len(peers)-1]
				idx.entries[i].peers = peers[:len(peers)-1]
				removed = true
				break
			}
		}
		if removed && len(idx.entries[i].peers) == 0 {
			idx.entries = append(idx.entries[:i], idx.entries[i+1:]...)
			continue
		}
		i++
	}
}

// MatchTopic returns the deduplicated set of peers subscribed to any
// prefix of topic. The scan is sorted-prefix order and exits as soon
// as a prefix lexicographically exceeds topic, since no later entry
// can match either.
func (idx *Index) MatchTopic(topic []byte) []PeerKey {
	var out []PeerKey

	for _, e := range idx.entries {
		if bytes.Compare(e.prefix, topic) > 0 {
			break
		}
		if bytes.HasPrefix(topic, e.prefix) {
			out = append(out, e.peers...)
		}
	}

	if len(out) > 1 {
		sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
		out = dedupSorted(out)
	}

	return out
}

func dedupSorted(s []PeerKey) []PeerKey {
	if len(s) == 0 {
		return s
	}
	j := 0
	for i := 1; i < len(s); i++ {
		if s[i] != s[j] {
			j++
			s[j] = s[i]
		}
	}
	return s[:j+1]
}

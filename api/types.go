// File: api/types.go
// Package api defines shared API-level type declarations and constants.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "time"

// SocketType is one of the canonical ZMTP socket patterns. It renders to
// its uppercase ASCII name on the wire (the READY command's Socket-Type
// property).
type SocketType int

const (
	Pair SocketType = iota
	Dealer
	Router
	Pub
	Sub
	Req
	Rep
	Push
	Pull
	XPub
	XSub
)

// String returns the wire name, e.g. "DEALER".
func (t SocketType) String() string {
	switch t {
	case Pair:
		return "PAIR"
	case Dealer:
		return "DEALER"
	case Router:
		return "ROUTER"
	case Pub:
		return "PUB"
	case Sub:
		return "SUB"
	case Req:
		return "REQ"
	case Rep:
		return "REP"
	case Push:
		return "PUSH"
	case Pull:
		return "PULL"
	case XPub:
		return "XPUB"
	case XSub:
		return "XSUB"
	default:
		return "UNKNOWN"
	}
}

// ParseSocketType recognizes the wire name sent in a peer's READY
// command. The empty string is not a valid socket type.
func ParseSocketType(s string) (SocketType, bool) {
	switch s {
	case "PAIR":
		return Pair, true
	case "DEALER":
		return Dealer, true
	case "ROUTER":
		return Router, true
	case "PUB":
		return Pub, true
	case "SUB":
		return Sub, true
	case "REQ":
		return Req, true
	case "REP":
		return Rep, true
	case "PUSH":
		return Push, true
	case "PULL":
		return Pull, true
	case "XPUB":
		return XPub, true
	case "XSUB":
		return XSub, true
	default:
		return 0, false
	}
}

// SocketEvents is a poll-style bitmask describing a socket's current
// readiness, mirroring libzmq's ZMQ_EVENTS.
type SocketEvents uint8

const (
	// PollIn is set when the socket is connected and not poisoned, i.e.
	// a recv may make progress.
	PollIn SocketEvents = 1 << iota
	// PollOut is set when additionally below send_hwm.
	PollOut
)

// Metrics is a lightweight counter snapshot a socket or hub exposes for
// observability; it carries no identifying information by itself.
type Metrics struct {
	MessagesSent     uint64
	MessagesReceived uint64
	BytesSent        uint64
	BytesReceived    uint64
	Dropped          uint64
	StartedAt        time.Time
}

// File: api/options.go
// Package api defines the functional-options configuration surface for
// sockets.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "time"

// RouterBehavior selects how a ROUTER socket picks the peer an outbound
// message goes to.
type RouterBehavior int

const (
	// RouterStandard routes each message to the peer named by its first
	// frame (the routing identity).
	RouterStandard RouterBehavior = iota
	// RouterLoadBalancer round-robins outbound messages across every
	// live peer, self-healing as peers come and go.
	RouterLoadBalancer
)

// SocketOptions collects every knob a socket can be constructed or
// reconfigured with. DefaultSocketOptions returns the baseline values;
// the zero value leaves every field zero.
type SocketOptions struct {
	Identity string

	SendHWM int
	RecvHWM int

	SendTimeout *time.Duration
	RecvTimeout *time.Duration

	Linger time.Duration

	ReconnectInterval    time.Duration
	ReconnectIntervalMax time.Duration

	HandshakeTimeout time.Duration

	RouterMandatory bool
	RouterHandover  bool
	ProbeRouter     bool

	ReqCorrelate bool
	ReqRelaxed   bool

	XPubVerbose   bool
	XPubManual    bool
	XPubWelcomeMsg []byte

	PlainUsername string
	PlainPassword string

	CurveServer     bool
	CurvePublicKey  [32]byte
	CurveSecretKey  [32]byte
	CurveServerKey  [32]byte

	ZapDomain string

	// Conflate makes a SUB or XSUB socket keep only the latest queued
	// inbound message, discarding older undelivered ones rather than
	// buffering them. Other socket types ignore it.
	Conflate bool

	Metadata map[string]string
}

// DefaultSocketOptions mirrors libzmq's stock defaults.
func DefaultSocketOptions() SocketOptions {
	return SocketOptions{
		SendHWM:              1000,
		RecvHWM:              1000,
		Linger:                30 * time.Second,
		ReconnectInterval:     100 * time.Millisecond,
		ReconnectIntervalMax:  0,
		HandshakeTimeout:      30 * time.Second,
	}
}

// Option mutates a SocketOptions value in place.
type Option func(*SocketOptions)

func WithIdentity(id string) Option {
	return func(o *SocketOptions) { o.Identity = id }
}

func WithSendHWM(n int) Option {
	return func(o *SocketOptions) { o.SendHWM = n }
}

func WithRecvHWM(n int) Option {
	return func(o *SocketOptions) { o.RecvHWM = n }
}

// WithSendTimeout records a send timeout in SocketOptions.SendTimeout.
// The socket types in package socket do not read this field: their
// Send calls never block and never return ErrWouldBlock.
func WithSendTimeout(d time.Duration) Option {
	return func(o *SocketOptions) { o.SendTimeout = &d }
}

func WithRecvTimeout(d time.Duration) Option {
	return func(o *SocketOptions) { o.RecvTimeout = &d }
}

func WithLinger(d time.Duration) Option {
	return func(o *SocketOptions) { o.Linger = d }
}

func WithReconnectInterval(base, max time.Duration) Option {
	return func(o *SocketOptions) {
		o.ReconnectInterval = base
		o.ReconnectIntervalMax = max
	}
}

func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *SocketOptions) { o.HandshakeTimeout = d }
}

func WithRouterMandatory(v bool) Option {
	return func(o *SocketOptions) { o.RouterMandatory = v }
}

func WithRouterHandover(v bool) Option {
	return func(o *SocketOptions) { o.RouterHandover = v }
}

func WithProbeRouter(v bool) Option {
	return func(o *SocketOptions) { o.ProbeRouter = v }
}

func WithReqCorrelate(v bool) Option {
	return func(o *SocketOptions) { o.ReqCorrelate = v }
}

func WithReqRelaxed(v bool) Option {
	return func(o *SocketOptions) { o.ReqRelaxed = v }
}

func WithXPubVerbose(v bool) Option {
	return func(o *SocketOptions) { o.XPubVerbose = v }
}

func WithXPubManual(v bool) Option {
	return func(o *SocketOptions) { o.XPubManual = v }
}

func WithXPubWelcomeMsg(msg []byte) Option {
	return func(o *SocketOptions) { o.XPubWelcomeMsg = msg }
}

func WithPlainAuth(username, password string) Option {
	return func(o *SocketOptions) {
		o.PlainUsername = username
		o.PlainPassword = password
	}
}

func WithCurveServer(secretKey [32]byte) Option {
	return func(o *SocketOptions) {
		o.CurveServer = true
		o.CurveSecretKey = secretKey
	}
}

func WithCurveClient(publicKey, secretKey, serverKey [32]byte) Option {
	return func(o *SocketOptions) {
		o.CurveServer = false
		o.CurvePublicKey = publicKey
		o.CurveSecretKey = secretKey
		o.CurveServerKey = serverKey
	}
}

func WithZapDomain(domain string) Option {
	return func(o *SocketOptions) { o.ZapDomain = domain }
}

func WithConflate(v bool) Option {
	return func(o *SocketOptions) { o.Conflate = v }
}

// Apply folds a list of Options onto a base SocketOptions value.
func Apply(base SocketOptions, opts ...Option) SocketOptions {
	for _, opt := range opts {
		opt(&base)
	}
	return base
}

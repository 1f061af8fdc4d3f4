// File: socket/base.go
// Package socket implements the ZMTP socket patterns (PAIR, REQ/REP,
// PUSH/PULL, DEALER/ROUTER, PUB/SUB/XPUB/XSUB) on top of the sans-I/O
// session state machine, the transport connection abstraction, and the
// peer-fanout hubs.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The facade shape - a config struct, functional options, a mutex-
// guarded struct wrapping the live subsystems, an explicit Close -
// follows the teacher's server.HioloadWS facade. Where the teacher
// spins one supervising goroutine per accepted connection and routes
// frames through channels, zmtpgo's peer type does the same: one
// reader goroutine decodes inbound frames off the wire and one writer
// goroutine drains an outbound channel, so a slow peer's backpressure
// never stalls another peer's hub-guarded critical section.
package socket

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/momentics/zmtpgo/api"
	"github.com/momentics/zmtpgo/core/arena"
	"github.com/momentics/zmtpgo/core/poison"
	"github.com/momentics/zmtpgo/core/protocol"
	"github.com/momentics/zmtpgo/core/reconnect"
	"github.com/momentics/zmtpgo/security"
	"github.com/momentics/zmtpgo/session"
)

// Inbound is one fully reassembled multipart message delivered off a
// peer's read loop, tagged with the routing identity the peer's READY
// command established it under.
type Inbound struct {
	RoutingID string
	Parts     [][]byte
}

// peer wraps one live ZMTP connection: the session FSM driving its
// handshake/framing and the goroutines pumping bytes in and out.
type peer struct {
	conn      api.Conn
	sess      *session.Session
	log       *logrus.Entry
	routingID string
	epoch     uint64

	poisoned bool

	writeMu sync.Mutex
	out     chan [][]byte
	closed  chan struct{}
	once    sync.Once

	onInbound func(Inbound)
	onClose   func(*peer)
}

func newPeer(conn api.Conn, sess *session.Session, log *logrus.Entry, onInbound func(Inbound), onClose func(*peer)) *peer {
	return &peer{
		conn:      conn,
		sess:      sess,
		log:       log,
		out:       make(chan [][]byte, 64),
		closed:    make(chan struct{}),
		onInbound: onInbound,
		onClose:   onClose,
	}
}

// run drives the peer until its connection closes or a protocol error
// occurs. It must be launched in its own goroutine; it blocks until
// the peer is done, then calls onClose exactly once.
func (p *peer) run() {
	defer p.once.Do(func() {
		close(p.closed)
		_ = p.conn.Close()
		if p.onClose != nil {
			p.onClose(p)
		}
	})

	go p.writeLoop()

	if greet := p.sess.LocalGreeting(); len(greet) > 0 {
		if _, err := p.write(greet); err != nil {
			p.log.WithError(err).Debug("peer: failed to send greeting")
			return
		}
	}

	ar := arena.New()
	var pending [][]byte

	for {
		// OnBytes keeps buf[:n] by reference until the session consumes
		// it, so every read gets a fresh buffer.
		buf := ar.AllocMut(arena.PageSize)
		n, err := p.conn.Read(buf)
		if n > 0 {
			events := p.sess.OnBytes(buf[:n])
			for _, ev := range events {
				switch ev.Kind {
				case session.EventSendBytes:
					if _, werr := p.write(ev.SendBytes); werr != nil {
						p.log.WithError(werr).Debug("peer: write failed")
						return
					}
				case session.EventHandshakeComplete:
					if p.routingID == "" {
						p.routingID = string(ev.PeerIdentity)
					}
					p.log.WithField("peer_type", ev.PeerSocketType.String()).Debug("peer: handshake complete")
				case session.EventFrame:
					pending = append(pending, ev.Frame.Body)
					if !ev.Frame.More() {
						parts := pending
						pending = nil
						if p.onInbound != nil {
							p.onInbound(Inbound{RoutingID: p.routingID, Parts: parts})
						}
					}
				case session.EventError:
					p.log.WithError(ev.Err).Debug("peer: protocol error")
					return
				}
			}
		}
		if err != nil {
			return
		}
	}
}

func (p *peer) writeLoop() {
	for {
		select {
		case <-p.closed:
			return
		case parts, ok := <-p.out:
			if !ok {
				return
			}
			guard := poison.New(&p.poisoned)
			if err := p.sendParts(parts); err != nil {
				p.log.WithError(err).Debug("peer: send failed")
				return
			}
			guard.Disarm()
		}
	}
}

func (p *peer) sendParts(parts [][]byte) error {
	for i, part := range parts {
		more := i < len(parts)-1
		body, err := p.sess.EncodeOutbound(part)
		if err != nil {
			return err
		}
		frame := protocol.EncodeFrame(body, more, false)
		if _, err := p.write(frame); err != nil {
			return err
		}
	}
	return nil
}

// write serializes access to the underlying connection: the handshake
// (run) and the outbound queue (writeLoop) both write frames, and
// net.Conn makes no guarantee that concurrent Write calls won't
// interleave their bytes on the wire.
func (p *peer) write(b []byte) (int, error) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.conn.Write(b)
}

// send enqueues parts for delivery without blocking the caller beyond
// the peer's outbound queue depth.
func (p *peer) send(parts [][]byte) bool {
	select {
	case p.out <- parts:
		return true
	case <-p.closed:
		return false
	default:
		return false
	}
}

func (p *peer) close() {
	p.once.Do(func() {
		close(p.closed)
		_ = p.conn.Close()
		if p.onClose != nil {
			p.onClose(p)
		}
	})
}

// Base holds the state common to every socket pattern: configuration,
// logging, the current connection(s), and reconnect bookkeeping for
// outbound (Dial) sockets.
type Base struct {
	mu sync.Mutex

	socketType api.SocketType
	opts       api.SocketOptions
	log        *logrus.Entry

	dialer   api.Dialer
	listener api.Listener

	closed  bool
	metrics api.Metrics
}

// NewBase constructs the shared socket state. dialer is used by
// Connect, listener is installed by Bind; a socket typically uses only
// one of the two per endpoint.
func NewBase(t api.SocketType, opts api.SocketOptions) *Base {
	return &Base{
		socketType: t,
		opts:       opts,
		log: logrus.NewEntry(logrus.StandardLogger()).WithFields(logrus.Fields{
			"component":   "socket",
			"socket_type": t.String(),
		}),
		metrics: api.Metrics{StartedAt: timeNow()},
	}
}

// timeNow is indirected so tests can't accidentally depend on wall
// clock skew across a run; kept trivial since the socket layer itself
// never needs to fake time.
func timeNow() time.Time { return time.Now() }

// newSession builds the sans-I/O handshake state machine for a new
// connection of this socket's type, selecting its security mechanism
// (NULL, PLAIN, or CURVE) from the socket's configured options.
// asServer is true for a connection accepted via Bind, false for one
// established via Connect; it is handed to the session (and from there
// to the mechanism), while the client or server variant of PLAIN and
// CURVE is chosen from the options alone.
func (b *Base) newSession(asServer bool) *session.Session {
	mech, err := security.HandshakerFromOptions(b.opts, asServer)
	if err != nil {
		b.log.WithError(err).Warn("security: falling back to NULL mechanism")
		mech = security.NullHandshaker{}
	}
	return session.New(b.socketType, []byte(b.opts.Identity), mech, asServer)
}

// dialWithReconnect repeatedly dials endpoint, handing every successful
// connection to onConnected, until ctx is canceled. onConnected should
// block until the connection is done (i.e. run the peer to completion)
// so the backoff only applies between genuine connection attempts.
func (b *Base) dialWithReconnect(ctx context.Context, endpoint string, onConnected func(api.Conn)) {
	backoff := reconnect.New(b.opts.ReconnectInterval, b.opts.ReconnectIntervalMax)

	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := b.dialer.Dial(endpoint)
		if err != nil {
			b.log.WithError(err).WithField("endpoint", endpoint).Debug("dial failed, backing off")
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff.NextDelay()):
			}
			continue
		}

		backoff.Reset()
		onConnected(conn)

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// acceptLoop runs Accept in a loop, handing every inbound connection to
// onConnected in its own goroutine, until ctx is canceled or the
// listener is closed.
func (b *Base) acceptLoop(ctx context.Context, onConnected func(api.Conn)) {
	for {
		conn, err := b.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.log.WithError(err).Debug("accept failed")
			return
		}
		go onConnected(conn)
	}
}

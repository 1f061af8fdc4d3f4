// File: session/fsm.go
// Package session implements the sans-I/O ZMTP session state machine:
// greeting exchange, security handshake, ZMTP handshake, then
// steady-state framing. It only consumes bytes and produces events - no
// goroutines, no net.Conn - so it can be driven by a blocking reader, a
// cooperative task, or a test harness feeding it byte fragments one at
// a time.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package session

import (
	"fmt"

	"github.com/momentics/zmtpgo/api"
	"github.com/momentics/zmtpgo/core/protocol"
	"github.com/momentics/zmtpgo/core/segbuf"
	"github.com/momentics/zmtpgo/security"
)

// EventKind discriminates the Event union.
type EventKind int

const (
	EventSendBytes EventKind = iota
	EventFrame
	EventHandshakeComplete
	EventError
)

// Event is one state-machine output. Only the field matching Kind is
// populated.
type Event struct {
	Kind EventKind

	SendBytes []byte
	Frame     protocol.Frame

	PeerIdentity   []byte
	PeerSocketType api.SocketType

	Err error
}

type phase int

const (
	phaseGreeting phase = iota
	phaseSecurity
	phaseHandshake
	phaseActive
)

// Session is the sans-I/O ZMTP handshake and framing state machine.
type Session struct {
	phase phase

	localSocketType api.SocketType
	localIdentity   []byte

	mech     security.Handshaker
	codec    security.MessageCodec
	asServer bool

	greetBuf     []byte
	decoder      *protocol.Decoder
	recv         *segbuf.SegmentedBuffer
	peerAsServer bool

	// pending holds already-encoded wire bytes (security handshake
	// frames, READY) queued for a caller to drain one SendBytes event
	// at a time before the state machine looks at new input.
	pending [][]byte
}

// New starts a session at the greeting phase, running mech as its
// security handshaker. asServer is this side's role in the mechanism's
// handshake (true for a Bind/accept-side connection, false for a
// Connect/dial-side one) - not to be confused with the ZMTP greeting's
// own as-server flag, which is always false (zmtpgo never implements
// the ZMTP_SERVER-only legacy role).
func New(localSocketType api.SocketType, localIdentity []byte, mech security.Handshaker, asServer bool) *Session {
	if mech == nil {
		mech = security.NullHandshaker{}
	}
	return &Session{
		phase:           phaseGreeting,
		localSocketType: localSocketType,
		localIdentity:   localIdentity,
		mech:            mech,
		asServer:        asServer,
		decoder:         protocol.NewDecoder(),
		recv:            segbuf.New(),
	}
}

// NewActive starts a session that has already completed its handshake
// out of band and so never runs a security mechanism. The socket
// layer does not use it: inproc connections run the same wire
// handshake as tcp.
func NewActive(localSocketType api.SocketType, localIdentity []byte) *Session {
	s := New(localSocketType, localIdentity, security.NullHandshaker{}, false)
	s.phase = phaseActive
	return s
}

// LocalGreeting returns this session's 64-byte greeting, advertising
// the configured security mechanism and ZMTP 3.0. zmtpgo accepts any
// peer minor version under major version 3.
func (s *Session) LocalGreeting() []byte {
	return protocol.EncodeGreeting(string(s.mech.Mechanism()), false)
}

// EncodeOutbound runs body through the session's message codec (CURVE
// encryption), if the negotiated mechanism installed one; otherwise it
// returns body unchanged.
func (s *Session) EncodeOutbound(body []byte) ([]byte, error) {
	if s.codec == nil {
		return body, nil
	}
	return s.codec.Encrypt(body)
}

// OnBytes feeds newly-received bytes into the session and returns every
// event the new data produced. Call this once per read from the
// underlying transport.
func (s *Session) OnBytes(src []byte) []Event {
	var events []Event
	s.recv.Push(src)

	for {
		if len(s.pending) > 0 {
			next := s.pending[0]
			s.pending = s.pending[1:]
			events = append(events, Event{Kind: EventSendBytes, SendBytes: next})
			continue
		}

		var ev *Event
		var done bool

		switch s.phase {
		case phaseGreeting:
			ev, done = s.stepGreeting()
		case phaseSecurity:
			ev, done = s.stepSecurity()
		case phaseHandshake:
			ev, done = s.stepHandshake()
		case phaseActive:
			ev, done = s.stepActive()
		}

		if ev != nil {
			events = append(events, *ev)
			if ev.Kind == EventError {
				return events
			}
		}
		if !done {
			return events
		}
	}
}

// queueCommand encodes each of frames as a ZMTP command frame and
// appends it to pending, to be drained one SendBytes event per
// OnBytes loop iteration.
func (s *Session) queueCommand(frames [][]byte) {
	for _, f := range frames {
		s.pending = append(s.pending, protocol.EncodeFrame(f, false, true))
	}
}

func (s *Session) queueReady() {
	ready := protocol.BuildReady(s.localSocketType.String(), s.localIdentity)
	s.pending = append(s.pending, protocol.EncodeFrame(ready, false, true))
}

func (s *Session) stepGreeting() (*Event, bool) {
	needed := protocol.GreetingSize - len(s.greetBuf)
	take := needed
	if s.recv.Len() < take {
		take = s.recv.Len()
	}
	if take > 0 {
		s.greetBuf = append(s.greetBuf, s.recv.Take(take)...)
	}

	if len(s.greetBuf) < protocol.GreetingSize {
		return nil, false
	}

	g, err := protocol.DecodeGreeting(s.greetBuf)
	if err != nil {
		return &Event{Kind: EventError, Err: err}, true
	}
	localMechanism := string(s.mech.Mechanism())
	if g.Mechanism != localMechanism {
		return &Event{Kind: EventError, Err: fmt.Errorf("%w: local mechanism %s, peer advertised %s", api.ErrProtocol, localMechanism, g.Mechanism)}, true
	}
	s.peerAsServer = g.AsServer

	if s.mech.Mechanism() == security.Null {
		s.phase = phaseHandshake
		s.queueReady()
		return nil, true
	}

	s.phase = phaseSecurity
	frames, err := s.mech.HandshakeFrames(s.asServer)
	if err != nil {
		return &Event{Kind: EventError, Err: err}, true
	}
	s.queueCommand(frames)
	return nil, true
}

// stepSecurity drives the mechanism-specific handshake (PLAIN's single
// HELLO/WELCOME exchange, CURVE's four-message HELLO/WELCOME/
// INITIATE/READY) command frame by command frame, until the mechanism
// reports done, at which point the READY command is queued as usual.
func (s *Session) stepSecurity() (*Event, bool) {
	frame, ok, err := s.decoder.Decode(s.recv)
	if err != nil {
		return &Event{Kind: EventError, Err: err}, true
	}
	if !ok {
		return nil, false
	}
	if !frame.IsCommand() {
		return &Event{Kind: EventError, Err: api.ErrProtocol}, true
	}

	reply, done, err := s.mech.OnFrame(s.asServer, frame.Body)
	if err != nil {
		return &Event{Kind: EventError, Err: err}, true
	}
	s.queueCommand(reply)

	if done {
		if codec, ok := s.mech.(security.MessageCodec); ok {
			s.codec = codec
		}
		s.phase = phaseHandshake
		s.queueReady()
	}
	return nil, true
}

func (s *Session) stepHandshake() (*Event, bool) {
	frame, ok, err := s.decoder.Decode(s.recv)
	if err != nil {
		return &Event{Kind: EventError, Err: err}, true
	}
	if !ok {
		return nil, false
	}
	if !frame.IsCommand() {
		return &Event{Kind: EventError, Err: api.ErrProtocol}, true
	}

	ready, err := protocol.ParseReady(frame.Body)
	if err != nil {
		return &Event{Kind: EventError, Err: err}, true
	}

	peerType, ok := api.ParseSocketType(ready.SocketType)
	if !ok {
		peerType = s.localSocketType
	}

	s.phase = phaseActive
	s.decoder = protocol.NewDecoder()

	return &Event{
		Kind:           EventHandshakeComplete,
		PeerIdentity:   ready.Identity,
		PeerSocketType: peerType,
	}, true
}

func (s *Session) stepActive() (*Event, bool) {
	frame, ok, err := s.decoder.Decode(s.recv)
	if err != nil {
		return &Event{Kind: EventError, Err: err}, true
	}
	if !ok {
		return nil, false
	}
	if s.codec != nil {
		plain, err := s.codec.Decrypt(frame.Body)
		if err != nil {
			return &Event{Kind: EventError, Err: err}, true
		}
		frame.Body = plain
	}
	return &Event{Kind: EventFrame, Frame: frame}, true
}

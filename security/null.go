// File: security/null.go
// Package security implements the ZMTP authentication mechanisms:
// NULL, PLAIN, and CURVE, plus the ZAP client used to delegate
// PLAIN/CURVE credential checks to an external handler.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package security

// Mechanism is the wire name of a ZMTP security mechanism, exchanged
// in the greeting's 20-byte mechanism field.
type Mechanism string

const (
	Null  Mechanism = "NULL"
	Plain Mechanism = "PLAIN"
	Curve Mechanism = "CURVE"
)

// Handshaker performs a mechanism-specific handshake after the ZMTP
// greeting exchange and before the READY command. NULL's handshake is
// a no-op since the READY command itself is the entire exchange; PLAIN
// and CURVE insert extra command frames first.
type Handshaker interface {
	// Mechanism returns the wire name advertised in the greeting.
	Mechanism() Mechanism

	// HandshakeFrames returns the command frames this side must send
	// before READY, given whether this side is the ZMTP server
	// (as-server flag in its greeting).
	HandshakeFrames(asServer bool) ([][]byte, error)

	// OnFrame processes one inbound handshake-phase command frame.
	// Returns done=true once the mechanism has nothing further to send
	// or receive and the session may proceed to READY/Active.
	OnFrame(asServer bool, body []byte) (reply [][]byte, done bool, err error)
}

// NullHandshaker implements the NULL mechanism: no credentials, no
// extra frames. It exists so callers can select a Handshaker uniformly
// regardless of configured security.
type NullHandshaker struct{}

func (NullHandshaker) Mechanism() Mechanism { return Null }

func (NullHandshaker) HandshakeFrames(asServer bool) ([][]byte, error) {
	return nil, nil
}

func (NullHandshaker) OnFrame(asServer bool, body []byte) ([][]byte, bool, error) {
	return nil, true, nil
}

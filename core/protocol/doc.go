// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Implements the core ZMTP 3.x wire protocol (RFC 23/ZMTP) for zmtpgo:
// the 64-byte greeting, the frame codec (flags byte, short/long length),
// and the READY command body used to close the handshake.
//
// Designed so every piece of state here is a pure function of bytes in,
// bytes/events out - no I/O, no goroutines. The session state machine
// in package session drives this codec against a live connection.
package protocol

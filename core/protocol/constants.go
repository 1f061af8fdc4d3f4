// Package protocol
// Author: momentics <momentics@gmail.com>
//
// ZMTP wire protocol constants.

package protocol

const (
	// GreetingSize is the fixed length of the ZMTP greeting.
	GreetingSize = 64

	signatureLen = 10
	mechanismLen = 20

	// MajorVersion is the ZMTP major version this codec speaks. Per the
	// RFC, any peer advertising major version 3 is compatible regardless
	// of its minor version.
	MajorVersion = 3
	MinorVersion = 0

	// Frame flag bits (RFC 23/ZMTP section "Framing").
	FlagMore    = 0x01
	FlagLong    = 0x02
	FlagCommand = 0x04

	// MaxShortLen is the largest body length representable in the
	// 1-byte short-frame length field.
	MaxShortLen = 255

	// NullMechanism is the only mechanism zmtpgo's base codec assumes;
	// PLAIN and CURVE are layered on top by the security package.
	NullMechanism = "NULL"
)

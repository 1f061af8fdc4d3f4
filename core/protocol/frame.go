// File: core/protocol/frame.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ZMTP frame codec: flags byte, short (1-byte) or long (8-byte
// big-endian) body length, then the body itself.

package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/momentics/zmtpgo/core/segbuf"
)

// MaxFrameBody bounds a single frame's body length to guard against a
// malicious or corrupt peer claiming an unbounded allocation.
const MaxFrameBody = 1 << 30 // 1 GiB

// ErrFrameTooLarge marks a decoded length exceeding MaxFrameBody.
var ErrFrameTooLarge = errors.New("protocol: frame body exceeds maximum size")

// Frame is one ZMTP wire frame: a command or a message part, with the
// MORE bit indicating additional parts follow.
type Frame struct {
	Flags byte
	Body  []byte
}

// More reports whether another frame belongs to the same message.
func (f Frame) More() bool { return f.Flags&FlagMore != 0 }

// IsCommand reports whether this frame carries a control command
// (READY, PING, PONG, SUBSCRIBE, CANCEL) rather than application data.
func (f Frame) IsCommand() bool { return f.Flags&FlagCommand != 0 }

// EncodeFrame serializes a single frame: body, more-flag, and whether
// it is a command frame.
func EncodeFrame(body []byte, more bool, isCommand bool) []byte {
	var flags byte
	if more {
		flags |= FlagMore
	}
	if isCommand {
		flags |= FlagCommand
	}

	size := len(body)
	isLong := size > MaxShortLen

	var hdr []byte
	if isLong {
		flags |= FlagLong
		hdr = make([]byte, 9)
		hdr[0] = flags
		binary.BigEndian.PutUint64(hdr[1:], uint64(size))
	} else {
		hdr = make([]byte, 2)
		hdr[0] = flags
		hdr[1] = byte(size)
	}

	out := make([]byte, len(hdr)+size)
	copy(out, hdr)
	copy(out[len(hdr):], body)
	return out
}

// Decoder incrementally parses frames out of a SegmentedBuffer, so it
// can resume across partial TCP reads without re-parsing consumed
// bytes.
type Decoder struct{}

// NewDecoder returns a Decoder. It carries no state beyond what lives
// in the SegmentedBuffer it's handed, so a single value can be reused
// across calls.
func NewDecoder() *Decoder { return &Decoder{} }

// Decode attempts to parse one complete frame from buf. It returns
// (frame, true, nil) on success, (zero, false, nil) if more bytes are
// needed, or a non-nil error on a malformed header.
func (d *Decoder) Decode(buf *segbuf.SegmentedBuffer) (Frame, bool, error) {
	if buf.Len() < 2 {
		return Frame{}, false, nil
	}

	head := buf.Peek(2)
	flags := head[0]
	isLong := flags&FlagLong != 0

	headerLen := 2
	var bodyLen uint64
	if isLong {
		if buf.Len() < 9 {
			return Frame{}, false, nil
		}
		headerLen = 9
		full := buf.Peek(9)
		bodyLen = binary.BigEndian.Uint64(full[1:9])
	} else {
		bodyLen = uint64(head[1])
	}

	if bodyLen > MaxFrameBody {
		return Frame{}, false, fmt.Errorf("%w: %d", ErrFrameTooLarge, bodyLen)
	}

	total := headerLen + int(bodyLen)
	if buf.Len() < total {
		return Frame{}, false, nil
	}

	all := buf.Take(total)
	body := make([]byte, bodyLen)
	copy(body, all[headerLen:])

	return Frame{Flags: flags, Body: body}, true, nil
}

// File: core/protocol/ready.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The READY command closes the ZMTP handshake. Its body is a sequence
// of name/value properties, each a 1-byte name length, the name, a
// 4-byte big-endian value length, then the value. Socket-Type is
// mandatory; Identity is optional.

package protocol

import (
	"encoding/binary"
	"fmt"
)

const readyCommandName = "READY"

// BuildReady constructs the READY command body (without the command
// frame's own flags/length header) for the given socket type and
// optional routing identity.
func BuildReady(socketType string, identity []byte) []byte {
	var props []byte
	props = appendProperty(props, "Socket-Type", []byte(socketType))
	if len(identity) > 0 {
		props = appendProperty(props, "Identity", identity)
	}

	out := make([]byte, 0, 1+len(readyCommandName)+len(props))
	out = append(out, byte(len(readyCommandName)))
	out = append(out, readyCommandName...)
	out = append(out, props...)
	return out
}

func appendProperty(dst []byte, name string, value []byte) []byte {
	dst = append(dst, byte(len(name)))
	dst = append(dst, name...)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(value)))
	dst = append(dst, lenBuf[:]...)
	dst = append(dst, value...)
	return dst
}

// Ready is the parsed content of a peer's READY command.
type Ready struct {
	SocketType string
	Identity   []byte
	Properties map[string][]byte
}

// ParseReady parses a command frame's body as a READY command.
func ParseReady(body []byte) (Ready, error) {
	var r Ready

	if len(body) < 1 {
		return r, fmt.Errorf("protocol: empty command body")
	}
	nameLen := int(body[0])
	if len(body) < 1+nameLen {
		return r, fmt.Errorf("protocol: truncated command name")
	}
	name := string(body[1 : 1+nameLen])
	if name != readyCommandName {
		return r, fmt.Errorf("protocol: expected READY, got %q", name)
	}

	r.Properties = make(map[string][]byte)
	pos := 1 + nameLen
	for pos < len(body) {
		if pos+1 > len(body) {
			return r, fmt.Errorf("protocol: truncated property name length")
		}
		pnLen := int(body[pos])
		pos++
		if pos+pnLen > len(body) {
			return r, fmt.Errorf("protocol: truncated property name")
		}
		pname := string(body[pos : pos+pnLen])
		pos += pnLen

		if pos+4 > len(body) {
			return r, fmt.Errorf("protocol: truncated property value length")
		}
		vlen := int(binary.BigEndian.Uint32(body[pos : pos+4]))
		pos += 4
		if pos+vlen > len(body) {
			return r, fmt.Errorf("protocol: truncated property value")
		}
		pval := body[pos : pos+vlen]
		pos += vlen

		r.Properties[pname] = pval
	}

	st, ok := r.Properties["Socket-Type"]
	if !ok {
		return r, fmt.Errorf("protocol: READY missing mandatory Socket-Type property")
	}
	r.SocketType = string(st)
	r.Identity = r.Properties["Identity"]

	return r, nil
}

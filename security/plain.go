// File: security/plain.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// PLAIN sends credentials in cleartext and should only be used over
// loopback, a VPN, or a transport that layers TLS underneath; the
// mechanism itself adds no confidentiality. PlainServer checks
// credentials through its Authenticator (by default the ZAP client of
// package security/zap), never inline; PLAIN is the only mechanism
// that uses Authenticator.

package security

import (
	"fmt"
)

const (
	plainHello   = "HELLO"
	plainWelcome = "WELCOME"
	plainError   = "ERROR"
)

// Authenticator validates credentials, typically by round-tripping a
// request through a ZAP handler.
type Authenticator interface {
	AuthenticatePlain(username, password, domain, address string) (userID string, err error)
}

// PlainClient drives the client side of the PLAIN handshake.
type PlainClient struct {
	Username string
	Password string

	sentHello bool
}

func (c *PlainClient) Mechanism() Mechanism { return Plain }

func (c *PlainClient) HandshakeFrames(asServer bool) ([][]byte, error) {
	c.sentHello = true
	return [][]byte{encodePlainCommand(plainHello, c.Username, c.Password)}, nil
}

func (c *PlainClient) OnFrame(asServer bool, body []byte) ([][]byte, bool, error) {
	name, _, err := decodePlainCommand(body)
	if err != nil {
		return nil, false, err
	}
	switch name {
	case plainWelcome:
		return nil, true, nil
	case plainError:
		return nil, false, fmt.Errorf("security: PLAIN rejected")
	default:
		return nil, false, fmt.Errorf("security: unexpected PLAIN command %q", name)
	}
}

// PlainServer drives the server side of the PLAIN handshake, checking
// credentials via auth.
type PlainServer struct {
	Auth    Authenticator
	Domain  string
	Address string

	UserID string
}

func (s *PlainServer) Mechanism() Mechanism { return Plain }

func (s *PlainServer) HandshakeFrames(asServer bool) ([][]byte, error) {
	return nil, nil
}

func (s *PlainServer) OnFrame(asServer bool, body []byte) ([][]byte, bool, error) {
	name, fields, err := decodePlainCommand(body)
	if err != nil {
		return nil, false, err
	}
	if name != plainHello {
		return nil, false, fmt.Errorf("security: expected HELLO, got %q", name)
	}
	if len(fields) != 2 {
		return nil, false, fmt.Errorf("security: malformed HELLO")
	}

	userID, err := s.Auth.AuthenticatePlain(fields[0], fields[1], s.Domain, s.Address)
	if err != nil {
		return [][]byte{[]byte{5, 'E', 'R', 'R', 'O', 'R'}}, true, fmt.Errorf("security: PLAIN authentication failed: %w", err)
	}

	s.UserID = userID
	return [][]byte{[]byte{7, 'W', 'E', 'L', 'C', 'O', 'M', 'E'}}, true, nil
}

func encodePlainCommand(name string, fields ...string) []byte {
	out := make([]byte, 0, 1+len(name))
	out = append(out, byte(len(name)))
	out = append(out, name...)
	for _, f := range fields {
		out = append(out, byte(len(f)))
		out = append(out, f...)
	}
	return out
}

func decodePlainCommand(body []byte) (string, []string, error) {
	if len(body) < 1 {
		return "", nil, fmt.Errorf("security: empty PLAIN command")
	}
	nameLen := int(body[0])
	if len(body) < 1+nameLen {
		return "", nil, fmt.Errorf("security: truncated PLAIN command name")
	}
	name := string(body[1 : 1+nameLen])

	var fields []string
	pos := 1 + nameLen
	for pos < len(body) {
		fLen := int(body[pos])
		pos++
		if pos+fLen > len(body) {
			return "", nil, fmt.Errorf("security: truncated PLAIN field")
		}
		fields = append(fields, string(body[pos:pos+fLen]))
		pos += fLen
	}
	return name, fields, nil
}

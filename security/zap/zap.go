// File: security/zap/zap.go
// Package zap implements the ZeroMQ Authentication Protocol: a
// multipart request/response exchanged over inproc://zeromq.zap.01
// between a socket's security mechanism and an application-supplied
// handler.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package zap

import (
	"fmt"

	"github.com/google/uuid"
)

// Endpoint is the well-known inproc address every ZAP handler binds
// and every mechanism dials.
const Endpoint = "inproc://zeromq.zap.01"

const protocolVersion = "1.0"

// Request is one ZAP authentication request.
type Request struct {
	RequestID  string
	Domain     string
	Address    string
	Identity   []byte
	Mechanism  string
	Credentials [][]byte
}

// NewRequest builds a Request with a freshly generated request id.
func NewRequest(domain, address, mechanism string, identity []byte, credentials ...[]byte) Request {
	return Request{
		RequestID:   uuid.NewString(),
		Domain:      domain,
		Address:     address,
		Identity:    identity,
		Mechanism:   mechanism,
		Credentials: credentials,
	}
}

// Encode renders the request as ZMTP multipart frames.
func (r Request) Encode() [][]byte {
	frames := [][]byte{
		[]byte(protocolVersion),
		[]byte(r.RequestID),
		[]byte(r.Domain),
		[]byte(r.Address),
		r.Identity,
		[]byte(r.Mechanism),
	}
	frames = append(frames, r.Credentials...)
	return frames
}

// DecodeRequest parses multipart frames into a Request.
func DecodeRequest(frames [][]byte) (Request, error) {
	if len(frames) < 6 {
		return Request{}, fmt.Errorf("zap: request needs at least 6 frames, got %d", len(frames))
	}
	if string(frames[0]) != protocolVersion {
		return Request{}, fmt.Errorf("zap: unsupported version %q", frames[0])
	}
	return Request{
		RequestID:   string(frames[1]),
		Domain:      string(frames[2]),
		Address:     string(frames[3]),
		Identity:    frames[4],
		Mechanism:   string(frames[5]),
		Credentials: frames[6:],
	}, nil
}

// Response is one ZAP authentication response. StatusCode follows
// HTTP-style conventions: 200 success, 300 temporary error, 400
// invalid request, 500 internal error.
type Response struct {
	RequestID    string
	StatusCode   string
	StatusText   string
	UserID       string
	MetadataBlob []byte
}

// Encode renders the response as ZMTP multipart frames.
func (r Response) Encode() [][]byte {
	return [][]byte{
		[]byte(protocolVersion),
		[]byte(r.RequestID),
		[]byte(r.StatusCode),
		[]byte(r.StatusText),
		[]byte(r.UserID),
		r.MetadataBlob,
	}
}

// DecodeResponse parses multipart frames into a Response.
func DecodeResponse(frames [][]byte) (Response, error) {
	if len(frames) < 6 {
		return Response{}, fmt.Errorf("zap: response needs 6 frames, got %d", len(frames))
	}
	if string(frames[0]) != protocolVersion {
		return Response{}, fmt.Errorf("zap: unsupported version %q", frames[0])
	}
	return Response{
		RequestID:    string(frames[1]),
		StatusCode:   string(frames[2]),
		StatusText:   string(frames[3]),
		UserID:       string(frames[4]),
		MetadataBlob: frames[5],
	}, nil
}

// Success reports whether the response's status code is in the 2xx
// range.
func (r Response) Success() bool {
	return len(r.StatusCode) == 3 && r.StatusCode[0] == '2'
}

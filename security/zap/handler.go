// File: security/zap/handler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package zap

import (
	"github.com/sirupsen/logrus"
)

// Handler validates a decoded ZAP Request and returns the Response to
// send back. Implementations typically check domain/address/identity
// against an allowlist, or delegate PLAIN/CURVE credentials to an
// external store.
type Handler interface {
	Handle(req Request) Response
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(Request) Response

func (f HandlerFunc) Handle(req Request) Response { return f(req) }

// AllowAll is a Handler that authenticates every request with user id
// "anonymous". The NULL mechanism never sends ZAP requests, so it is
// only reached by mechanisms that do (PLAIN).
var AllowAll Handler = HandlerFunc(func(req Request) Response {
	return Response{RequestID: req.RequestID, StatusCode: "200", StatusText: "OK", UserID: "anonymous"}
})

// Server decodes ZAP request frames and dispatches them to a Handler.
// It holds only the decode/dispatch/encode logic, so it's testable
// without any socket machinery; no message loop in this module feeds
// it frames (in-process ZAP requests go through Client and the
// handler registry instead).
type Server struct {
	Handler Handler
	log     *logrus.Entry
}

// NewServer wraps handler with structured logging.
func NewServer(handler Handler, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{Handler: handler, log: log.WithField("component", "zap-server")}
}

// HandleFrames decodes one ZAP request, dispatches it, and returns the
// encoded response frames to send back over the inproc ZAP connection.
func (s *Server) HandleFrames(frames [][]byte) [][]byte {
	req, err := DecodeRequest(frames)
	if err != nil {
		s.log.WithError(err).Warn("malformed ZAP request")
		return Response{StatusCode: "500", StatusText: "malformed request"}.Encode()
	}

	resp := s.Handler.Handle(req)
	if resp.RequestID == "" {
		resp.RequestID = req.RequestID
	}

	s.log.WithFields(logrus.Fields{
		"mechanism": req.Mechanism,
		"address":   req.Address,
		"status":    resp.StatusCode,
	}).Debug("ZAP request handled")

	return resp.Encode()
}

// File: security/zap/client.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// libzmq routes ZAP requests through a real DEALER socket connected to
// inproc://zeromq.zap.01, since the handler may live in a different
// thread. zmtpgo's socket and ZAP handler run in the same process and
// usually the same goroutine tree, so Client calls the registered
// Handler directly - the Request/Response wire shapes above are kept
// so a future out-of-process handler only needs a transport swap, not
// a protocol change.

package zap

import (
	"fmt"
	"sync"
	"time"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Handler)
)

// Register installs handler as the ZAP responder for endpoint
// (conventionally Endpoint). A socket with no registered handler
// treats every PLAIN/CURVE request as a hard authentication failure,
// matching libzmq's "no handler bound" behavior.
func Register(endpoint string, handler Handler) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[endpoint] = handler
}

// Unregister removes the handler for endpoint.
func Unregister(endpoint string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, endpoint)
}

// Client sends authentication requests to whatever Handler is
// registered for Endpoint.
type Client struct {
	Endpoint string
	Timeout  time.Duration
}

// NewClient returns a Client bound to the well-known ZAP endpoint.
func NewClient(timeout time.Duration) *Client {
	return &Client{Endpoint: Endpoint, Timeout: timeout}
}

// Authenticate dispatches req to the registered handler and returns
// its response.
func (c *Client) Authenticate(req Request) (Response, error) {
	registryMu.RLock()
	h, ok := registry[c.Endpoint]
	registryMu.RUnlock()

	if !ok {
		return Response{}, fmt.Errorf("zap: no handler registered for %s", c.Endpoint)
	}

	resp := h.Handle(req)
	if resp.RequestID == "" {
		resp.RequestID = req.RequestID
	}
	return resp, nil
}

// AuthenticatePlain sends a PLAIN credential check and reports the
// resulting user id.
func (c *Client) AuthenticatePlain(username, password, domain, address string) (string, error) {
	req := NewRequest(domain, address, "PLAIN", nil, []byte(username), []byte(password))
	resp, err := c.Authenticate(req)
	if err != nil {
		return "", err
	}
	if !resp.Success() {
		return "", fmt.Errorf("zap: authentication failed: %s %s", resp.StatusCode, resp.StatusText)
	}
	return resp.UserID, nil
}

// AuthenticateCurve sends a CURVE public-key check and reports the
// resulting user id.
func (c *Client) AuthenticateCurve(clientKey [32]byte, domain, address string) (string, error) {
	req := NewRequest(domain, address, "CURVE", nil, clientKey[:])
	resp, err := c.Authenticate(req)
	if err != nil {
		return "", err
	}
	if !resp.Success() {
		return "", fmt.Errorf("zap: authentication failed: %s %s", resp.StatusCode, resp.StatusText)
	}
	return resp.UserID, nil
}

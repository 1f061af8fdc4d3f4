// File: transport/inproc/dialer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package inproc

import "github.com/momentics/zmtpgo/api"

// Dialer adapts the package-level Dial function to api.Dialer, so
// socket.Base.dialWithReconnect can use it interchangeably with any
// other transport.
type Dialer struct{}

// Dial connects to a bound inproc endpoint.
func (Dialer) Dial(endpoint string) (api.Conn, error) { return Dial(endpoint) }

//go:build windows
// +build windows

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp

import "net"

// tuneTCPConn uses net.TCPConn's portable knobs on Windows, where the
// raw setsockopt path golang.org/x/sys/unix exposes isn't available.
func tuneTCPConn(tc *net.TCPConn) {
	tc.SetNoDelay(true)
	tc.SetKeepAlive(true)
}

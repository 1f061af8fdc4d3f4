//go:build linux
// +build linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"net"

	"golang.org/x/sys/unix"
)

// tuneTCPConn disables Nagle's algorithm and enables TCP keepalive on
// the raw socket, matching libzmq's default TCP transport tuning.
func tuneTCPConn(tc *net.TCPConn) {
	raw, err := tc.SyscallConn()
	if err != nil {
		return
	}
	raw.Control(func(fd uintptr) {
		unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
		unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1)
	})
}

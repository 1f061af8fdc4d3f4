// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package tcp implements the tcp:// transport: a thin net.TCPConn
// wrapper satisfying api.Conn, plus platform socket tuning
// (TCP_NODELAY, keepalive) applied via golang.org/x/sys/unix on the
// raw file descriptor.
package tcp

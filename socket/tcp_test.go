// File: socket/tcp_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package socket

import (
	"context"
	"testing"
	"time"

	"github.com/momentics/zmtpgo/api"
	"github.com/momentics/zmtpgo/transport/tcp"
)

func TestPairOverRealTCPLoopback(t *testing.T) {
	listener, err := tcp.Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	endpoint := listener.Addr()[len("tcp://"):]

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := NewPair(api.DefaultSocketOptions())
	go server.Bind(ctx, listener)

	client := NewPair(api.DefaultSocketOptions())
	go client.Connect(ctx, tcp.Dialer{Timeout: 2 * time.Second}, endpoint)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if client.Send([][]byte{[]byte("ping")}) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	recvCtx, recvCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer recvCancel()
	in, err := server.Recv(recvCtx)
	if err != nil {
		t.Fatalf("server Recv: %v", err)
	}
	if len(in.Parts) != 1 || string(in.Parts[0]) != "ping" {
		t.Fatalf("unexpected parts: %v", in.Parts)
	}
}

// File: socket/pair_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package socket

import (
	"context"
	"testing"
	"time"

	"github.com/momentics/zmtpgo/api"
	"github.com/momentics/zmtpgo/transport/inproc"
)

func TestPairEchoesAcrossInproc(t *testing.T) {
	endpoint := "inproc://pair-echo-test"

	listener, err := inproc.Bind(endpoint)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := NewPair(api.DefaultSocketOptions())
	go server.Bind(ctx, listener)

	client := NewPair(api.DefaultSocketOptions())
	go client.Connect(ctx, inproc.Dialer{}, endpoint)

	waitForSend(t, client, [][]byte{[]byte("hello")})

	in, err := recvWithTimeout(t, server)
	if err != nil {
		t.Fatalf("server Recv: %v", err)
	}
	if len(in.Parts) != 1 || string(in.Parts[0]) != "hello" {
		t.Fatalf("unexpected parts: %v", in.Parts)
	}

	if !server.Send([][]byte{[]byte("world")}) {
		t.Fatalf("server Send failed")
	}

	reply, err := recvWithTimeout(t, client)
	if err != nil {
		t.Fatalf("client Recv: %v", err)
	}
	if len(reply.Parts) != 1 || string(reply.Parts[0]) != "world" {
		t.Fatalf("unexpected reply: %v", reply.Parts)
	}
}

func waitForSend(t *testing.T, s *Pair, parts [][]byte) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Send(parts) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("send never succeeded (peer never connected)")
}

func recvWithTimeout(t *testing.T, s *Pair) (Inbound, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.Recv(ctx)
}

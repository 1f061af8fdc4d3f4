// File: socket/pushpull_test.go
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

func TestPushPullDelivers(t *testing.T) {
	endpoint := "inproc://pushpull-test"

	listener, err := inproc.Bind(endpoint)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pull := NewPull(api.DefaultSocketOptions())
	go pull.Bind(ctx, listener)

	push := NewPush(api.DefaultSocketOptions())
	go push.Connect(ctx, inproc.Dialer{}, endpoint)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if push.Send([][]byte{[]byte("work")}) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	recvCtx, recvCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer recvCancel()
	in, err := pull.Recv(recvCtx)
	if err != nil {
		t.Fatalf("pull Recv: %v", err)
	}
	if len(in.Parts) != 1 || string(in.Parts[0]) != "work" {
		t.Fatalf("unexpected parts: %v", in.Parts)
	}
}

func TestPushRoundRobinsAcrossPeers(t *testing.T) {
	push := NewPush(api.DefaultSocketOptions())

	var delivered [2]int
	for i := 0; i < 2; i++ {
		idx := i
		p := &peer{out: make(chan [][]byte, 4), closed: make(chan struct{})}
		go func() {
			for range p.out {
				delivered[idx]++
			}
		}()
		push.add(p)
	}

	for i := 0; i < 4; i++ {
		if !push.Send([][]byte{[]byte("x")}) {
			t.Fatalf("send %d failed", i)
		}
	}

	time.Sleep(20 * time.Millisecond)
	if delivered[0] != 2 || delivered[1] != 2 {
		t.Fatalf("expected even split, got %v", delivered)
	}
}

// File: socket/reqrep_test.go
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

func TestReqRepRoundTrip(t *testing.T) {
	endpoint := "inproc://reqrep-test"

	listener, err := inproc.Bind(endpoint)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rep := NewRep(api.DefaultSocketOptions())
	go rep.Bind(ctx, listener)

	req := NewReq(api.DefaultSocketOptions())
	go req.Connect(ctx, inproc.Dialer{}, endpoint)

	waitForReqSend(t, req, [][]byte{[]byte("ping")})

	reqCtx, reqCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer reqCancel()
	request, err := rep.Recv(reqCtx)
	if err != nil {
		t.Fatalf("rep Recv: %v", err)
	}
	if len(request) != 1 || string(request[0]) != "ping" {
		t.Fatalf("unexpected request: %v", request)
	}

	if err := rep.Send([][]byte{[]byte("pong")}); err != nil {
		t.Fatalf("rep Send: %v", err)
	}

	replyCtx, replyCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer replyCancel()
	reply, err := req.Recv(replyCtx)
	if err != nil {
		t.Fatalf("req Recv: %v", err)
	}
	if len(reply) != 1 || string(reply[0]) != "pong" {
		t.Fatalf("unexpected reply: %v", reply)
	}
}

func TestReqCorrelateMatchesReplyAndDropsStale(t *testing.T) {
	endpoint := "inproc://reqrep-correlate-test"

	listener, err := inproc.Bind(endpoint)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rep := NewRep(api.DefaultSocketOptions())
	go rep.Bind(ctx, listener)

	req := NewReq(api.Apply(api.DefaultSocketOptions(), api.WithReqCorrelate(true)))
	go req.Connect(ctx, inproc.Dialer{}, endpoint)

	waitForReqSend(t, req, [][]byte{[]byte("ping")})

	reqCtx, reqCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer reqCancel()
	request, err := rep.Recv(reqCtx)
	if err != nil {
		t.Fatalf("rep Recv: %v", err)
	}
	if len(request) != 1 || string(request[0]) != "ping" {
		t.Fatalf("unexpected request: %v", request)
	}

	// A stale reply carrying a mismatched request-id, delivered ahead
	// of the real reply, must be dropped rather than handed to the
	// caller.
	req.recv <- Inbound{Parts: [][]byte{{0, 0, 0, 0, 0, 0, 0, 99}, {}, []byte("stale")}}

	if err := rep.Send([][]byte{[]byte("pong")}); err != nil {
		t.Fatalf("rep Send: %v", err)
	}

	replyCtx, replyCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer replyCancel()
	reply, err := req.Recv(replyCtx)
	if err != nil {
		t.Fatalf("req Recv: %v", err)
	}
	if len(reply) != 1 || string(reply[0]) != "pong" {
		t.Fatalf("expected the correlated reply, got %v", reply)
	}
}

func TestReqRejectsSendBeforeRecv(t *testing.T) {
	req := NewReq(api.DefaultSocketOptions())
	req.peers = append(req.peers, &peer{out: make(chan [][]byte, 1), closed: make(chan struct{})})
	req.awaitingRecv = true

	if err := req.Send([][]byte{[]byte("again")}); err == nil {
		t.Fatalf("expected error sending before matching recv")
	}
}

func waitForReqSend(t *testing.T, s *Req, body [][]byte) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if err := s.Send(body); err == nil {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("req send never succeeded (peer never connected)")
}

// File: socket/dealerrouter_test.go
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

func TestRouterDealerRoundTrip(t *testing.T) {
	endpoint := "inproc://router-dealer-test"

	listener, err := inproc.Bind(endpoint)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	router := NewRouter(api.DefaultSocketOptions())
	go router.Bind(ctx, listener)

	dealer := NewDealer(api.Apply(api.DefaultSocketOptions(), api.WithIdentity("client-a")))
	go dealer.Connect(ctx, inproc.Dialer{}, endpoint)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if err := dealer.Send([][]byte{[]byte("hi")}); err == nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	recvCtx, recvCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer recvCancel()
	in, err := router.Recv(recvCtx)
	if err != nil {
		t.Fatalf("router Recv: %v", err)
	}
	if len(in.Parts) < 2 {
		t.Fatalf("expected identity envelope + body, got %v", in.Parts)
	}
	id := in.Parts[0]
	body := in.Parts[1:]
	if string(body[len(body)-1]) != "hi" {
		t.Fatalf("unexpected body: %v", body)
	}

	reply := append([][]byte{id}, []byte("there"))
	if err := router.Send(reply); err != nil {
		t.Fatalf("router Send: %v", err)
	}

	dealerCtx, dealerCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer dealerCancel()
	dealerIn, err := dealer.Recv(dealerCtx)
	if err != nil {
		t.Fatalf("dealer Recv: %v", err)
	}
	if len(dealerIn.Parts) != 1 || string(dealerIn.Parts[0]) != "there" {
		t.Fatalf("unexpected dealer reply: %v", dealerIn.Parts)
	}
}

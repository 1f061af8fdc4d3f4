// File: socket/pubsub_test.go
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

func TestPubSubDeliversMatchingTopic(t *testing.T) {
	endpoint := "inproc://pubsub-test"

	listener, err := inproc.Bind(endpoint)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub := NewPub(api.DefaultSocketOptions())
	go pub.Bind(ctx, listener)

	sub := NewSub(api.DefaultSocketOptions())
	go sub.Connect(ctx, inproc.Dialer{}, endpoint)

	// Give the handshake a moment before subscribing.
	time.Sleep(20 * time.Millisecond)
	sub.Subscribe([]byte("weather"))

	// Subscription propagation is async; retry publish until a message
	// arrives or the deadline expires.
	recvCh := make(chan Inbound, 1)
	go func() {
		rctx, rcancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer rcancel()
		in, err := sub.Recv(rctx)
		if err == nil {
			recvCh <- in
		}
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		pub.Publish([][]byte{[]byte("weather"), []byte("sunny")})
		select {
		case in := <-recvCh:
			if len(in.Parts) != 2 || string(in.Parts[0]) != "weather" || string(in.Parts[1]) != "sunny" {
				t.Fatalf("unexpected message: %v", in.Parts)
			}
			return
		case <-time.After(20 * time.Millisecond):
		}
	}
	t.Fatalf("subscriber never received matching publish")
}

func TestXPubSurfacesSubscriptions(t *testing.T) {
	endpoint := "inproc://xpub-test"

	listener, err := inproc.Bind(endpoint)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	xpub := NewXPub(api.DefaultSocketOptions())
	go xpub.Bind(ctx, listener)

	sub := NewSub(api.DefaultSocketOptions())
	go sub.Connect(ctx, inproc.Dialer{}, endpoint)

	time.Sleep(20 * time.Millisecond)
	sub.Subscribe([]byte("news"))

	recvCtx, recvCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer recvCancel()
	in, err := xpub.Recv(recvCtx)
	if err != nil {
		t.Fatalf("xpub Recv: %v", err)
	}
	subscribe, prefix, ok := decodeSubControl(in.Parts)
	if !ok || !subscribe || string(prefix) != "news" {
		t.Fatalf("unexpected notification: subscribe=%v prefix=%q ok=%v", subscribe, prefix, ok)
	}
}

func TestXSubSendRawDrivesSubscription(t *testing.T) {
	endpoint := "inproc://xsub-test"

	listener, err := inproc.Bind(endpoint)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub := NewPub(api.DefaultSocketOptions())
	go pub.Bind(ctx, listener)

	xsub := NewXSub(api.DefaultSocketOptions())
	go xsub.Connect(ctx, inproc.Dialer{}, endpoint)

	time.Sleep(20 * time.Millisecond)

	// Build the [0x01|prefix] SUBSCRIBE control frame by hand instead
	// of going through Subscribe, exercising the raw programmatic path
	// an XSUB caller is expected to use.
	xsub.SendRaw([][]byte{append([]byte{subFlagSubscribe}, []byte("weather")...)})

	recvCh := make(chan Inbound, 1)
	go func() {
		rctx, rcancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer rcancel()
		in, err := xsub.Recv(rctx)
		if err == nil {
			recvCh <- in
		}
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		pub.Publish([][]byte{[]byte("weather"), []byte("sunny")})
		select {
		case in := <-recvCh:
			if len(in.Parts) != 2 || string(in.Parts[0]) != "weather" || string(in.Parts[1]) != "sunny" {
				t.Fatalf("unexpected message: %v", in.Parts)
			}
			return
		case <-time.After(20 * time.Millisecond):
		}
	}
	t.Fatalf("XSUB's raw SendRaw subscribe never produced a matching publish")
}

func TestConflateKeepsOnlyLatestMessage(t *testing.T) {
	endpoint := "inproc://conflate-test"

	listener, err := inproc.Bind(endpoint)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub := NewPub(api.DefaultSocketOptions())
	go pub.Bind(ctx, listener)

	sub := NewSub(api.Apply(api.DefaultSocketOptions(), api.WithConflate(true)))
	go sub.Connect(ctx, inproc.Dialer{}, endpoint)

	time.Sleep(20 * time.Millisecond)
	sub.Subscribe([]byte("tick"))

	// Wait for the subscription to take effect by polling until the
	// first publish is observed, then flood several more before
	// draining - only the last one should survive.
	deadline := time.Now().Add(2 * time.Second)
	var firstSeen bool
	for time.Now().Before(deadline) && !firstSeen {
		pub.Publish([][]byte{[]byte("tick"), []byte("0")})
		select {
		case in := <-sub.recv:
			firstSeen = true
			_ = in
		case <-time.After(20 * time.Millisecond):
		}
	}
	if !firstSeen {
		t.Fatalf("subscriber never became reachable")
	}

	for i := 1; i <= 5; i++ {
		pub.Publish([][]byte{[]byte("tick"), []byte{byte('0' + i)}})
		time.Sleep(5 * time.Millisecond)
	}

	recvCtx, recvCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer recvCancel()
	in, err := sub.Recv(recvCtx)
	if err != nil {
		t.Fatalf("sub Recv: %v", err)
	}
	if len(in.Parts) != 2 || string(in.Parts[1]) != "5" {
		t.Fatalf("expected only the latest message to survive conflate, got %v", in.Parts)
	}

	select {
	case extra := <-sub.recv:
		t.Fatalf("expected no further buffered messages, got %v", extra.Parts)
	default:
	}
}

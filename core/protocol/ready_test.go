package protocol_test

import (
	"bytes"
	"testing"

	"github.com/momentics/zmtpgo/core/protocol"
)

func TestReadyRoundTrip(t *testing.T) {
	body := protocol.BuildReady("DEALER", []byte("client-1"))

	r, err := protocol.ParseReady(body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r.SocketType != "DEALER" {
		t.Errorf("socket type = %q", r.SocketType)
	}
	if !bytes.Equal(r.Identity, []byte("client-1")) {
		t.Errorf("identity = %q", r.Identity)
	}
}

func TestReadyWithoutIdentity(t *testing.T) {
	body := protocol.BuildReady("PUB", nil)
	r, err := protocol.ParseReady(body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r.SocketType != "PUB" {
		t.Errorf("socket type = %q", r.SocketType)
	}
	if r.Identity != nil {
		t.Errorf("expected nil identity, got %q", r.Identity)
	}
}

func TestParseReadyMissingSocketType(t *testing.T) {
	bad := []byte{5, 'R', 'E', 'A', 'D', 'Y'}
	if _, err := protocol.ParseReady(bad); err == nil {
		t.Fatal("expected error for missing Socket-Type")
	}
}

package protocol_test

import (
	"testing"

	"github.com/momentics/zmtpgo/core/protocol"
)

func TestGreetingRoundTrip(t *testing.T) {
	wire := protocol.EncodeGreeting(protocol.NullMechanism, true)
	if len(wire) != protocol.GreetingSize {
		t.Fatalf("expected %d bytes, got %d", protocol.GreetingSize, len(wire))
	}

	g, err := protocol.DecodeGreeting(wire)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if g.Mechanism != protocol.NullMechanism {
		t.Errorf("mechanism = %q", g.Mechanism)
	}
	if !g.AsServer {
		t.Error("expected AsServer true")
	}
	if g.MajorVersion != protocol.MajorVersion {
		t.Errorf("major version = %d", g.MajorVersion)
	}
}

func TestGreetingBadSignature(t *testing.T) {
	wire := protocol.EncodeGreeting(protocol.NullMechanism, false)
	wire[0] = 0x00

	if _, err := protocol.DecodeGreeting(wire); err == nil {
		t.Fatal("expected signature error")
	}
}

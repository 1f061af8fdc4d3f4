package hub

import (
	"testing"

	"github.com/momentics/zmtpgo/api"
)

func TestStandardRoutingDropsUnknown(t *testing.T) {
	h := NewRouterHub(api.RouterStandard)
	err := h.RouteOutbound([][]byte{[]byte("ghost"), {}, []byte("body")}, false)
	if err != nil {
		t.Fatalf("expected silent drop, got %v", err)
	}
}

func TestStandardRoutingMandatoryErrors(t *testing.T) {
	h := NewRouterHub(api.RouterStandard)
	err := h.RouteOutbound([][]byte{[]byte("ghost"), {}, []byte("body")}, true)
	if err != api.ErrHostUnreachable {
		t.Fatalf("expected ErrHostUnreachable, got %v", err)
	}
}

func TestStandardRoutingDeliversToKnownPeer(t *testing.T) {
	h := NewRouterHub(api.RouterStandard)
	ch, ok := h.PeerUp("peer-1", false)
	if !ok {
		t.Fatal("expected first registration to succeed")
	}

	err := h.RouteOutbound([][]byte{[]byte("peer-1"), {}, []byte("hello")}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case cmd := <-ch:
		if string(cmd.Body[0]) != "hello" {
			t.Fatalf("unexpected body: %q", cmd.Body)
		}
	default:
		t.Fatal("expected a queued PeerCmd")
	}
}

func TestLoadBalancerRoundRobin(t *testing.T) {
	h := NewRouterHub(api.RouterLoadBalancer)
	a, _ := h.PeerUp("a", false)
	b, _ := h.PeerUp("b", false)

	for i := 0; i < 4; i++ {
		if err := h.RouteOutbound([][]byte{[]byte("msg")}, false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	var aCount, bCount int
	drain := func(ch <-chan PeerCmd, count *int) {
		for {
			select {
			case <-ch:
				*count++
			default:
				return
			}
		}
	}
	drain(a, &aCount)
	drain(b, &bCount)

	if aCount != 2 || bCount != 2 {
		t.Fatalf("expected even RR split, got a=%d b=%d", aCount, bCount)
	}
}

func TestLoadBalancerSelfHealsGhostPeer(t *testing.T) {
	h := NewRouterHub(api.RouterLoadBalancer)
	h.PeerUp("ghost", false)
	// Simulate the peer dying without PeerDown ever running by directly
	// deleting from the map but leaving lbList stale.
	h.mu.Lock()
	delete(h.peers, "ghost")
	h.mu.Unlock()

	live, _ := h.PeerUp("live", false)
	err := h.RouteOutbound([][]byte{[]byte("msg")}, true)
	if err != nil {
		t.Fatalf("expected self-heal to find live peer, got %v", err)
	}
	select {
	case <-live:
	default:
		t.Fatal("expected live peer to receive the message")
	}
}

func TestPeerUpRejectsDuplicateWithoutHandover(t *testing.T) {
	h := NewRouterHub(api.RouterStandard)
	h.PeerUp("dup", false)

	_, ok := h.PeerUp("dup", false)
	if ok {
		t.Fatal("expected duplicate registration to be rejected when handover is off")
	}
}

func TestPeerUpHandoverCarriesPendingOutbound(t *testing.T) {
	h := NewRouterHub(api.RouterStandard)
	oldCh, _ := h.PeerUp("dup", false)

	if err := h.RouteOutbound([][]byte{[]byte("dup"), {}, []byte("queued")}, false); err != nil {
		t.Fatalf("unexpected error queuing onto old peer: %v", err)
	}

	newCh, ok := h.PeerUp("dup", true)
	if !ok {
		t.Fatal("expected handover registration to succeed")
	}

	select {
	case cmd := <-oldCh:
		if !cmd.Close {
			t.Fatalf("expected the old peer's channel to receive a close, got %+v", cmd)
		}
	default:
		t.Fatal("expected old peer's channel to be signaled closed")
	}

	select {
	case cmd := <-newCh:
		if string(cmd.Body[0]) != "queued" {
			t.Fatalf("expected the pending message to carry over, got %q", cmd.Body)
		}
	default:
		t.Fatal("expected the message queued before handover to carry over to the new peer")
	}
}

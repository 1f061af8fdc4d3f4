package arena

import "testing"

func TestAllocMutDisjoint(t *testing.T) {
	a := New()

	b1 := a.AllocMut(16)
	b2 := a.AllocMut(16)

	b1 = append(b1, make([]byte, 64)...)
	for _, v := range b2 {
		if v != 0 {
			t.Fatalf("b1 append corrupted b2")
		}
	}
}

func TestAllocMutNewPage(t *testing.T) {
	a := New()

	first := a.AllocMut(PageSize - 8)
	second := a.AllocMut(16)

	if len(first) != PageSize-8 {
		t.Fatalf("unexpected first len: %d", len(first))
	}
	if len(second) != 16 {
		t.Fatalf("unexpected second len: %d", len(second))
	}
}

func TestAllocMutOversize(t *testing.T) {
	a := New()
	b := a.AllocMut(PageSize + 1)
	if len(b) != PageSize+1 {
		t.Fatalf("expected oversize alloc to succeed, got len %d", len(b))
	}
}

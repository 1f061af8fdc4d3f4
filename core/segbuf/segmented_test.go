package segbuf

import (
	"bytes"
	"testing"
)

func TestPushAndTakeWithinSegment(t *testing.T) {
	b := New()
	b.Push([]byte("hello world"))

	got := b.Take(5)
	if !bytes.Equal(got, []byte("hello")) {
		t.Fatalf("got %q", got)
	}
	if b.Len() != 6 {
		t.Fatalf("expected 6 remaining, got %d", b.Len())
	}
}

func TestTakeAcrossSegments(t *testing.T) {
	b := New()
	b.Push([]byte("abc"))
	b.Push([]byte("def"))
	b.Push([]byte("ghi"))

	got := b.Take(7)
	if !bytes.Equal(got, []byte("abcdefg")) {
		t.Fatalf("got %q", got)
	}
	if b.Len() != 2 {
		t.Fatalf("expected 2 remaining, got %d", b.Len())
	}

	rest := b.Take(2)
	if !bytes.Equal(rest, []byte("hi")) {
		t.Fatalf("got %q", rest)
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	b := New()
	b.Push([]byte("xyz"))

	p := b.Peek(2)
	if !bytes.Equal(p, []byte("xy")) {
		t.Fatalf("got %q", p)
	}
	if b.Len() != 3 {
		t.Fatalf("peek should not consume, len=%d", b.Len())
	}
}

func TestTakeBeyondLengthPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic")
		}
	}()
	b := New()
	b.Push([]byte("ab"))
	b.Take(5)
}

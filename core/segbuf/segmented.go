// File: core/segbuf/segmented.go
// Package segbuf implements a segmented byte buffer: a queue of
// immutable slices that supports O(1) push/peek and O(1)-amortized take.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package segbuf

// SegmentedBuffer holds inbound bytes as a queue of immutable segments,
// coalescing only across segment boundaries so a partial take never
// copies more than the requested amount plus at most one segment's
// remainder.
type SegmentedBuffer struct {
	segments [][]byte
	// headOff is the consumed offset into segments[0].
	headOff int
	length  int
}

// New returns an empty SegmentedBuffer.
func New() *SegmentedBuffer {
	return &SegmentedBuffer{}
}

// Push appends a segment. The segment is taken by reference; callers
// must not mutate it afterward.
func (b *SegmentedBuffer) Push(seg []byte) {
	if len(seg) == 0 {
		return
	}
	b.segments = append(b.segments, seg)
	b.length += len(seg)
}

// Len returns the total number of unconsumed bytes.
func (b *SegmentedBuffer) Len() int { return b.length }

// Peek returns the first n unconsumed bytes without removing them. It
// may copy across a segment boundary; callers needing zero-copy access
// to a single segment should use PeekSegment instead.
func (b *SegmentedBuffer) Peek(n int) []byte {
	if n > b.length {
		n = b.length
	}
	if n == 0 {
		return nil
	}

	first := b.segments[0][b.headOff:]
	if n <= len(first) {
		return first[:n]
	}

	out := make([]byte, 0, n)
	out = append(out, first...)
	for i := 1; len(out) < n; i++ {
		seg := b.segments[i]
		need := n - len(out)
		if need >= len(seg) {
			out = append(out, seg...)
		} else {
			out = append(out, seg[:need]...)
		}
	}
	return out
}

// PeekSegment returns the first unconsumed segment (or its unconsumed
// tail) without copying, plus whether any bytes remain.
func (b *SegmentedBuffer) PeekSegment() ([]byte, bool) {
	if b.length == 0 {
		return nil, false
	}
	return b.segments[0][b.headOff:], true
}

// Take removes and returns the first n unconsumed bytes, advancing the
// internal cursor. It panics if n exceeds Len.
func (b *SegmentedBuffer) Take(n int) []byte {
	if n > b.length {
		panic("segbuf: Take beyond available length")
	}
	if n == 0 {
		return nil
	}

	first := b.segments[0][b.headOff:]
	if n <= len(first) {
		out := first[:n]
		b.advance(n)
		return out
	}

	out := make([]byte, 0, n)
	out = append(out, first...)
	remaining := n - len(first)
	b.advance(len(first))

	for remaining > 0 {
		seg, ok := b.PeekSegment()
		if !ok {
			break
		}
		if remaining >= len(seg) {
			out = append(out, seg...)
			b.advance(len(seg))
			remaining -= len(seg)
		} else {
			out = append(out, seg[:remaining]...)
			b.advance(remaining)
			remaining = 0
		}
	}
	return out
}

// advance consumes n bytes from the front, dropping fully-consumed
// segments.
func (b *SegmentedBuffer) advance(n int) {
	b.length -= n
	b.headOff += n
	for len(b.segments) > 0 && b.headOff >= len(b.segments[0]) {
		b.headOff -= len(b.segments[0])
		b.segments[0] = nil
		b.segments = b.segments[1:]
	}
}

// File: core/poison/guard.go
// Package poison implements a cancellation-safety guard for multi-step
// I/O operations.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A timeout or context cancellation can abandon a goroutine mid-write,
// leaving a partial ZMTP frame on the wire with no way to resynchronize
// the peer. Guard makes that state explicit: constructing one assumes
// failure, and only Disarm, called after the entire logical operation
// completes, proves otherwise. A socket that returns early - by error,
// panic recovery, or deadline - leaves its stream poisoned until
// reconnect.
//
// Apply this to every non-atomic write: multipart sends, buffered
// flushes, anything larger than one syscall. Reads are usually
// idempotent and don't need it, unless a read observes partial
// multipart state that can't be rolled back.
package poison

// Guard marks *flag poisoned for as long as it lives, and clears it
// only when Disarm is called. Never reset the flag directly; once
// poisoned, the caller must reconnect rather than keep using the
// stream.
type Guard struct {
	flag     *bool
	disarmed bool
}

// New arms a guard against flag, immediately setting it to true.
func New(flag *bool) *Guard {
	*flag = true
	return &Guard{flag: flag}
}

// Disarm clears the guarded flag. Call this only once the entire
// logical operation - every frame of a multipart send, every byte of a
// flush - has completed successfully. Calling it more than once is a
// no-op.
func (g *Guard) Disarm() {
	if g.disarmed {
		return
	}
	*g.flag = false
	g.disarmed = true
}

// File: message/builder.go
// Package message provides a fluent multipart message builder.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package message

import (
	"encoding/json"
	"fmt"
)

// Message is a multipart message builder with ergonomic frame
// construction, mirroring how a caller hands a socket its frames.
type Message struct {
	frames [][]byte
}

// New returns an empty Message.
func New() *Message {
	return &Message{}
}

// FromFrames wraps an existing frame slice without copying.
func FromFrames(frames [][]byte) *Message {
	return &Message{frames: frames}
}

// Push appends a raw frame and returns the receiver for chaining.
func (m *Message) Push(frame []byte) *Message {
	m.frames = append(m.frames, frame)
	return m
}

// PushString appends a UTF-8 frame.
func (m *Message) PushString(s string) *Message {
	m.frames = append(m.frames, []byte(s))
	return m
}

// PushJSON appends a JSON-encoded frame.
func (m *Message) PushJSON(v any) (*Message, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return m, fmt.Errorf("message: marshal json: %w", err)
	}
	m.frames = append(m.frames, b)
	return m, nil
}

// PushEmpty appends a zero-length frame, e.g. the delimiter between a
// ROUTER envelope and its payload.
func (m *Message) PushEmpty() *Message {
	m.frames = append(m.frames, []byte{})
	return m
}

// Len returns the number of frames.
func (m *Message) Len() int { return len(m.frames) }

// Empty reports whether the message has no frames.
func (m *Message) Empty() bool { return len(m.frames) == 0 }

// Frames returns the underlying frame slice. Callers must not mutate it.
func (m *Message) Frames() [][]byte { return m.frames }

// IntoFrames consumes the builder and returns its frames.
func (m *Message) IntoFrames() [][]byte {
	f := m.frames
	m.frames = nil
	return f
}

// ParseFrameString decodes the frame at index as UTF-8. It does not
// validate encoding; callers that need strict validation should use
// utf8.Valid directly.
func (m *Message) ParseFrameString(index int) (string, error) {
	if index < 0 || index >= len(m.frames) {
		return "", fmt.Errorf("message: frame index %d out of bounds (len %d)", index, len(m.frames))
	}
	return string(m.frames[index]), nil
}

// ParseFrameJSON decodes the frame at index into v.
func (m *Message) ParseFrameJSON(index int, v any) error {
	if index < 0 || index >= len(m.frames) {
		return fmt.Errorf("message: frame index %d out of bounds (len %d)", index, len(m.frames))
	}
	if err := json.Unmarshal(m.frames[index], v); err != nil {
		return fmt.Errorf("message: unmarshal json at frame %d: %w", index, err)
	}
	return nil
}

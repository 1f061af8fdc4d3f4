package message

import "testing"

func TestBasicBuilder(t *testing.T) {
	m := New().
		Push([]byte("frame1")).
		PushString("frame2").
		PushEmpty().
		Push([]byte{1, 2, 3})

	if m.Len() != 4 {
		t.Fatalf("expected 4 frames, got %d", m.Len())
	}
	if string(m.Frames()[0]) != "frame1" {
		t.Errorf("frame 0 = %q", m.Frames()[0])
	}
	if len(m.Frames()[2]) != 0 {
		t.Errorf("frame 2 should be empty, got %q", m.Frames()[2])
	}
}

func TestIntoFrames(t *testing.T) {
	frames := New().PushString("hello").PushString("world").IntoFrames()
	if len(frames) != 2 || string(frames[0]) != "hello" || string(frames[1]) != "world" {
		t.Fatalf("unexpected frames: %v", frames)
	}
}

func TestParseFrameString(t *testing.T) {
	m := New().PushString("topic").Push([]byte("data"))

	s, err := m.ParseFrameString(0)
	if err != nil || s != "topic" {
		t.Fatalf("expected topic, got %q err=%v", s, err)
	}
	if _, err := m.ParseFrameString(5); err == nil {
		t.Fatal("expected out-of-bounds error")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	type data struct {
		Name  string `json:"name"`
		Value int    `json:"value"`
	}

	m, err := New().PushString("events").PushJSON(data{Name: "temperature", Value: 23})
	if err != nil {
		t.Fatalf("push json: %v", err)
	}

	var got data
	if err := m.ParseFrameJSON(1, &got); err != nil {
		t.Fatalf("parse json: %v", err)
	}
	if got.Name != "temperature" || got.Value != 23 {
		t.Errorf("unexpected decode: %+v", got)
	}
}

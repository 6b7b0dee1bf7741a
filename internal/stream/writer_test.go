package stream

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func TestWriterHeaders(t *testing.T) {
	recorder := httptest.NewRecorder()
	NewWriter(recorder)

	header := recorder.Header()
	if got := header.Get("Content-Type"); got != "text/event-stream; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := header.Get("x-vercel-ai-ui-message-stream"); got != "v1" {
		t.Errorf("protocol header = %q, want v1", got)
	}
	if got := header.Get("X-Accel-Buffering"); got != "no" {
		t.Errorf("X-Accel-Buffering = %q, want no", got)
	}
	if got := header.Get("Cache-Control"); got != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", got)
	}
}

func TestWriterFrameFormat(t *testing.T) {
	recorder := httptest.NewRecorder()
	writer := NewWriter(recorder)

	if err := writer.WriteEvent(Start()); err != nil {
		t.Fatal(err)
	}
	if err := writer.WriteEvent(TextDelta("t1", "hello ")); err != nil {
		t.Fatal(err)
	}
	if err := writer.Done(); err != nil {
		t.Fatal(err)
	}

	body := recorder.Body.String()
	frames := strings.Split(strings.TrimSuffix(body, "\n\n"), "\n\n")
	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3: %q", len(frames), body)
	}

	for _, frame := range frames {
		if !strings.HasPrefix(frame, "data: ") {
			t.Errorf("frame %q missing data prefix", frame)
		}
	}

	var delta Event
	if err := json.Unmarshal([]byte(strings.TrimPrefix(frames[1], "data: ")), &delta); err != nil {
		t.Fatalf("frame payload is not JSON: %v", err)
	}
	if delta.Type != "text-delta" || delta.ID != "t1" || delta.Delta != "hello " {
		t.Errorf("decoded frame = %+v", delta)
	}

	if frames[2] != "data: [DONE]" {
		t.Errorf("terminator frame = %q", frames[2])
	}
}

func TestWriterConcurrentFramesDoNotInterleave(t *testing.T) {
	recorder := httptest.NewRecorder()
	writer := NewWriter(recorder)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				writer.WriteEvent(TextDelta("id", "payload")) //nolint:errcheck
			}
		}()
	}
	wg.Wait()

	// Every line must be a complete, parseable frame.
	for _, line := range strings.Split(strings.TrimSpace(recorder.Body.String()), "\n\n") {
		payload := strings.TrimPrefix(line, "data: ")
		var event Event
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			t.Fatalf("interleaved frame %q: %v", line, err)
		}
		if event.Delta != "payload" {
			t.Fatalf("corrupted frame: %+v", event)
		}
	}
}

func TestChatTitleEventShape(t *testing.T) {
	payload, err := json.Marshal(ChatTitle("My title"))
	if err != nil {
		t.Fatal(err)
	}
	if string(payload) != `{"type":"data-chat-title","data":"My title"}` {
		t.Errorf("ChatTitle payload = %s", payload)
	}
}

func TestErrorEventShape(t *testing.T) {
	payload, err := json.Marshal(Error("Oops, an error occurred!"))
	if err != nil {
		t.Fatal(err)
	}
	if string(payload) != `{"type":"error","errorText":"Oops, an error occurred!"}` {
		t.Errorf("Error payload = %s", payload)
	}
}

package stream

// Event is one self-contained unit of the outgoing streamed response,
// using the UI message stream vocabulary the client SDK consumes.
type Event struct {
	Type      string      `json:"type"`
	ID        string      `json:"id,omitempty"`
	Delta     string      `json:"delta,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	ErrorText string      `json:"errorText,omitempty"`
}

func Start() Event {
	return Event{Type: "start"}
}

func TextStart(id string) Event {
	return Event{Type: "text-start", ID: id}
}

func TextDelta(id, delta string) Event {
	return Event{Type: "text-delta", ID: id, Delta: delta}
}

func TextEnd(id string) Event {
	return Event{Type: "text-end", ID: id}
}

func ReasoningStart(id string) Event {
	return Event{Type: "reasoning-start", ID: id}
}

func ReasoningDelta(id, delta string) Event {
	return Event{Type: "reasoning-delta", ID: id, Delta: delta}
}

func ReasoningEnd(id string) Event {
	return Event{Type: "reasoning-end", ID: id}
}

// ChatTitle is the out-of-band title update. It may interleave anywhere
// in the token stream; clients must not rely on its position.
func ChatTitle(title string) Event {
	return Event{Type: "data-chat-title", Data: title}
}

func Finish() Event {
	return Event{Type: "finish"}
}

// Error is the single terminal error frame. The text is always an
// opaque user-facing message, never internal exception detail.
func Error(message string) Event {
	return Event{Type: "error", ErrorText: message}
}

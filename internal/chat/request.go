package chat

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/better-gpt/gateway/internal/provider"
	"github.com/better-gpt/gateway/internal/store"
)

// chatRequest is the POST /api/chat body. The chat id is client
// supplied and doubles as the idempotency key.
type chatRequest struct {
	ID       string           `json:"id"`
	Messages []messagePayload `json:"messages"`
	Model    string           `json:"model"`
}

type messagePayload struct {
	ID    string        `json:"id"`
	Role  string        `json:"role"`
	Parts []partPayload `json:"parts"`
}

type partPayload struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	URL       string `json:"url,omitempty"`
	MediaType string `json:"mediaType,omitempty"`
}

var uuidRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// isValidUUID reports whether id is a canonical UUID. Client SDKs send
// temporary ids (random short strings) that the schema rejects.
func isValidUUID(id string) bool {
	return uuidRegex.MatchString(strings.ToLower(id))
}

// canonicalID returns id when it is a valid UUID and a freshly
// generated one otherwise. A malformed id is never persisted.
func canonicalID(id string) string {
	if isValidUUID(id) {
		return id
	}
	return uuid.New().String()
}

// lastUserMessage returns the latest user-authored turn, or nil.
func lastUserMessage(messages []messagePayload) *messagePayload {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == store.RoleUser {
			return &messages[i]
		}
	}
	return nil
}

// textContent joins the text segments of a message; non-text parts are
// ignored (title generation and the model prompt use text only).
func textContent(parts []partPayload) string {
	var texts []string
	for _, part := range parts {
		if part.Type == "text" && part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, "\n")
}

func storeTextContent(parts []store.Part) string {
	var texts []string
	for _, part := range parts {
		if part.Type == "text" && part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, "\n")
}

func toStoreParts(parts []partPayload) []store.Part {
	out := make([]store.Part, 0, len(parts))
	for _, part := range parts {
		out = append(out, store.Part{
			Type:      part.Type,
			Text:      part.Text,
			URL:       part.URL,
			MediaType: part.MediaType,
		})
	}
	return out
}

// buildModelMessages assembles the full ordered context: persisted
// history followed by the new user turn.
func buildModelMessages(history []store.Message, last *messagePayload) []provider.Message {
	messages := make([]provider.Message, 0, len(history)+1)
	for _, m := range history {
		content := storeTextContent(m.Parts)
		if content == "" {
			continue
		}
		messages = append(messages, provider.Message{Role: m.Role, Content: content})
	}
	if last != nil {
		messages = append(messages, provider.Message{Role: store.RoleUser, Content: textContent(last.Parts)})
	}
	return messages
}

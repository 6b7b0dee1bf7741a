package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// Visibility of a chat.
const (
	VisibilityPrivate = "private"
	VisibilityPublic  = "public"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Part is one content segment of a message. Parts are ordered; the
// order must reconstruct the exact turn presented to the model.
type Part struct {
	Type      string `json:"type"` // "text", "reasoning" or "file"
	Text      string `json:"text,omitempty"`
	URL       string `json:"url,omitempty"`
	MediaType string `json:"mediaType,omitempty"`
}

// User is a minimal user record. Guest users are synthetic rows minted
// by the identity resolver so ownership checks succeed.
type User struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
}

// Chat is a persisted conversation thread owned by exactly one user.
// The id is client-supplied and doubles as the idempotency key: the
// first request with an unseen id creates the row, later requests
// reuse it. UserID is immutable after creation.
type Chat struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Title      string    `json:"title"`
	Visibility string    `json:"visibility"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Message is one turn of a chat.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId"`
	Role      string    `json:"role"`
	Parts     []Part    `json:"parts"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store is the conversation store contract. The backing storage is the
// authority for all durable state and serializes concurrent writes to
// the same row; application code does not.
type Store interface {
	CreateUser(ctx context.Context, user User) error

	// CreateChat inserts the chat if the id is unseen and is a no-op
	// otherwise, so concurrent first requests cannot create duplicates.
	CreateChat(ctx context.Context, chat Chat) error
	GetChat(ctx context.Context, id string) (*Chat, error)
	UpdateChatTitle(ctx context.Context, id, title string) error
	// ListChats returns the user's chats newest-first, optionally
	// filtered by case-insensitive substring match on title.
	ListChats(ctx context.Context, userID, search string) ([]Chat, error)
	// DeleteChat removes the chat and all of its messages.
	DeleteChat(ctx context.Context, id string) error

	SaveMessages(ctx context.Context, messages []Message) error
	// ListMessages returns the chat's messages in creation order.
	ListMessages(ctx context.Context, chatID string) ([]Message, error)
}

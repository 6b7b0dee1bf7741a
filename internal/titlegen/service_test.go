package titlegen

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/better-gpt/gateway/internal/logger"
	"github.com/better-gpt/gateway/internal/store"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: slog.LevelError})
}

func newTestChat(t *testing.T, st store.Store, chatID string) {
	t.Helper()
	err := st.CreateChat(context.Background(), store.Chat{
		ID:         chatID,
		UserID:     "user-1",
		Title:      "New chat",
		Visibility: store.VisibilityPrivate,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}
}

func TestServicePersistsTitleAndNotifies(t *testing.T) {
	st := store.NewMemoryStore()
	newTestChat(t, st, "chat-1")

	completer := &fakeCompleter{response: "Trip to Japan"}
	service := NewService(NewGenerator(completer, "test-model"), st, testLogger(), Options{
		WorkerPoolSize: 1,
		BufferSize:     4,
		Timeout:        time.Second,
	})
	defer service.Shutdown()

	notify := make(chan string, 1)
	service.Enqueue("chat-1", "Help me plan a trip to Japan", notify)

	select {
	case title := <-notify:
		if title != "Trip to Japan" {
			t.Errorf("notified title = %q, want %q", title, "Trip to Japan")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for title notification")
	}

	chat, err := st.GetChat(context.Background(), "chat-1")
	if err != nil {
		t.Fatalf("GetChat: %v", err)
	}
	if chat.Title != "Trip to Japan" {
		t.Errorf("persisted title = %q, want %q", chat.Title, "Trip to Japan")
	}
}

func TestServiceKeepsPlaceholderOnEmptyTitle(t *testing.T) {
	st := store.NewMemoryStore()
	newTestChat(t, st, "chat-1")

	// Model returned only forbidden characters; sanitization leaves
	// nothing usable.
	completer := &fakeCompleter{response: `":"`}
	service := NewService(NewGenerator(completer, "test-model"), st, testLogger(), Options{
		WorkerPoolSize: 1,
		BufferSize:     4,
		Timeout:        time.Second,
	})

	service.Enqueue("chat-1", "hello", nil)
	service.Shutdown() // drains the queue

	chat, err := st.GetChat(context.Background(), "chat-1")
	if err != nil {
		t.Fatalf("GetChat: %v", err)
	}
	if chat.Title != "New chat" {
		t.Errorf("title = %q, want placeholder preserved", chat.Title)
	}
}

func TestServiceShutdownDrainsQueue(t *testing.T) {
	st := store.NewMemoryStore()
	for _, id := range []string{"chat-1", "chat-2", "chat-3"} {
		newTestChat(t, st, id)
	}

	completer := &fakeCompleter{response: "Generated title"}
	service := NewService(NewGenerator(completer, "test-model"), st, testLogger(), Options{
		WorkerPoolSize: 1,
		BufferSize:     8,
		Timeout:        time.Second,
	})

	for _, id := range []string{"chat-1", "chat-2", "chat-3"} {
		service.Enqueue(id, "first message", nil)
	}
	service.Shutdown()

	for _, id := range []string{"chat-1", "chat-2", "chat-3"} {
		chat, err := st.GetChat(context.Background(), id)
		if err != nil {
			t.Fatalf("GetChat(%s): %v", id, err)
		}
		if chat.Title != "Generated title" {
			t.Errorf("chat %s title = %q, want %q", id, chat.Title, "Generated title")
		}
	}
}

func TestServiceRejectsAfterShutdown(t *testing.T) {
	st := store.NewMemoryStore()
	newTestChat(t, st, "chat-1")

	service := NewService(NewGenerator(&fakeCompleter{response: "x"}, "m"), st, testLogger(), Options{
		WorkerPoolSize: 1,
		BufferSize:     1,
		Timeout:        time.Second,
	})
	service.Shutdown()

	// Must not panic or block.
	service.Enqueue("chat-1", "hello", nil)
}

package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreCreateChatIdempotent(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	first := Chat{ID: "c1", UserID: "u1", Title: "New chat", Visibility: VisibilityPrivate, CreatedAt: time.Now()}
	if err := st.CreateChat(ctx, first); err != nil {
		t.Fatal(err)
	}

	// A second create with the same id must not replace the row.
	dup := first
	dup.UserID = "attacker"
	dup.Title = "hijacked"
	if err := st.CreateChat(ctx, dup); err != nil {
		t.Fatal(err)
	}

	chat, err := st.GetChat(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if chat.UserID != "u1" || chat.Title != "New chat" {
		t.Errorf("chat = %+v, want original row preserved", chat)
	}
}

func TestMemoryStoreGetChatNotFound(t *testing.T) {
	st := NewMemoryStore()
	if _, err := st.GetChat(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreListChatsOrderAndSearch(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	base := time.Now()

	chats := []Chat{
		{ID: "c1", UserID: "u1", Title: "Trip to Japan", CreatedAt: base},
		{ID: "c2", UserID: "u1", Title: "Go generics", CreatedAt: base.Add(time.Minute)},
		{ID: "c3", UserID: "u1", Title: "Japan food guide", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "c4", UserID: "u2", Title: "Japan (other user)", CreatedAt: base.Add(3 * time.Minute)},
	}
	for _, chat := range chats {
		if err := st.CreateChat(ctx, chat); err != nil {
			t.Fatal(err)
		}
	}

	all, err := st.ListChats(ctx, "u1", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d chats, want 3", len(all))
	}
	if all[0].ID != "c3" || all[1].ID != "c2" || all[2].ID != "c1" {
		t.Errorf("order = %s, %s, %s; want newest first", all[0].ID, all[1].ID, all[2].ID)
	}

	// Case-insensitive substring match, scoped to the owner.
	matched, err := st.ListChats(ctx, "u1", "japan")
	if err != nil {
		t.Fatal(err)
	}
	if len(matched) != 2 {
		t.Fatalf("search got %d chats, want 2", len(matched))
	}
	for _, chat := range matched {
		if chat.UserID != "u1" {
			t.Errorf("search leaked chat owned by %s", chat.UserID)
		}
	}
}

func TestMemoryStoreDeleteChatRemovesMessages(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	st.CreateChat(ctx, Chat{ID: "c1", UserID: "u1", CreatedAt: time.Now()}) //nolint:errcheck
	st.SaveMessages(ctx, []Message{                                        //nolint:errcheck
		{ID: "m1", ChatID: "c1", Role: RoleUser, Parts: []Part{{Type: "text", Text: "hi"}}, CreatedAt: time.Now()},
	})

	if err := st.DeleteChat(ctx, "c1"); err != nil {
		t.Fatal(err)
	}
	if _, err := st.GetChat(ctx, "c1"); !errors.Is(err, ErrNotFound) {
		t.Error("chat still present after delete")
	}
	messages, err := st.ListMessages(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if len(messages) != 0 {
		t.Errorf("got %d orphaned messages, want 0", len(messages))
	}
}

func TestMemoryStoreListMessagesOrder(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	base := time.Now()

	err := st.SaveMessages(ctx, []Message{
		{ID: "m2", ChatID: "c1", Role: RoleAssistant, CreatedAt: base.Add(time.Second)},
		{ID: "m1", ChatID: "c1", Role: RoleUser, CreatedAt: base},
	})
	if err != nil {
		t.Fatal(err)
	}

	messages, err := st.ListMessages(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if len(messages) != 2 || messages[0].ID != "m1" || messages[1].ID != "m2" {
		t.Errorf("messages out of creation order: %+v", messages)
	}
}

func TestMemoryStoreUpdateChatTitle(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	st.CreateChat(ctx, Chat{ID: "c1", UserID: "u1", Title: "New chat", CreatedAt: time.Now()}) //nolint:errcheck
	if err := st.UpdateChatTitle(ctx, "c1", "Better title"); err != nil {
		t.Fatal(err)
	}
	chat, _ := st.GetChat(ctx, "c1")
	if chat.Title != "Better title" {
		t.Errorf("title = %q", chat.Title)
	}

	if err := st.UpdateChatTitle(ctx, "missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

package store

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore implements Store with in-process maps. Used in tests and
// when no DATABASE_URL is configured. Not durable.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]User
	chats    map[string]Chat
	messages map[string][]Message // keyed by chat id, insertion order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]User),
		chats:    make(map[string]Chat),
		messages: make(map[string][]Message),
	}
}

func (s *MemoryStore) CreateUser(ctx context.Context, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.ID]; !exists {
		s.users[user.ID] = user
	}
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, exists := s.users[id]
	if !exists {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (s *MemoryStore) CreateChat(ctx context.Context, chat Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.chats[chat.ID]; !exists {
		s.chats[chat.ID] = chat
	}
	return nil
}

func (s *MemoryStore) GetChat(ctx context.Context, id string) (*Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chat, exists := s.chats[id]
	if !exists {
		return nil, ErrNotFound
	}
	return &chat, nil
}

func (s *MemoryStore) UpdateChatTitle(ctx context.Context, id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, exists := s.chats[id]
	if !exists {
		return ErrNotFound
	}
	chat.Title = title
	s.chats[id] = chat
	return nil
}

func (s *MemoryStore) ListChats(ctx context.Context, userID, search string) ([]Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chats := []Chat{}
	for _, chat := range s.chats {
		if chat.UserID != userID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(chat.Title), strings.ToLower(search)) {
			continue
		}
		chats = append(chats, chat)
	}

	sort.Slice(chats, func(i, j int) bool {
		return chats[i].CreatedAt.After(chats[j].CreatedAt)
	})
	return chats, nil
}

func (s *MemoryStore) DeleteChat(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.messages, id)
	delete(s.chats, id)
	return nil
}

func (s *MemoryStore) SaveMessages(ctx context.Context, messages []Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, message := range messages {
		s.messages[message.ChatID] = append(s.messages[message.ChatID], message)
	}
	return nil
}

func (s *MemoryStore) ListMessages(ctx context.Context, chatID string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := append([]Message{}, s.messages[chatID]...)
	// Stable so equal timestamps keep insertion order.
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages, nil
}

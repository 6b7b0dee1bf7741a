package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestMemoryStoreFixedWindow(t *testing.T) {
	store := NewMemoryStore(0)
	limiter := NewLimiter(store, 3, 24*time.Hour)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		result, err := limiter.Check(ctx, "1.2.3.4")
		if err != nil {
			t.Fatalf("Check %d returned error: %v", i, err)
		}
		if !result.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
		if result.Remaining != 3-i {
			t.Errorf("request %d: remaining = %d, want %d", i, result.Remaining, 3-i)
		}
	}

	result, err := limiter.Check(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if result.Allowed {
		t.Fatal("request over limit should be denied")
	}
	if result.Remaining != 0 {
		t.Errorf("denied request: remaining = %d, want 0", result.Remaining)
	}
	if result.ResetAt.IsZero() {
		t.Error("denied request must carry the window reset time")
	}
}

func TestMemoryStoreDenialDoesNotIncrement(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		store.Consume(ctx, "ip", 1, time.Hour)
	}

	// If denials incremented the count, the entry would sit far above
	// the cap. A fresh window must still admit exactly one request.
	store.mu.Lock()
	count := store.entries["ip"].count
	store.mu.Unlock()
	if count != 1 {
		t.Errorf("count = %d, want 1 (denials must not increment)", count)
	}
}

func TestMemoryStoreWindowReset(t *testing.T) {
	store := NewMemoryStore(0)
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := store.Consume(ctx, "ip", 2, 24*time.Hour)
		if err != nil || !result.Allowed {
			t.Fatalf("request %d: allowed=%v err=%v", i, result.Allowed, err)
		}
	}
	if result, _ := store.Consume(ctx, "ip", 2, 24*time.Hour); result.Allowed {
		t.Fatal("third request within window should be denied")
	}

	// Advance past the window; the identifier starts a fresh count.
	current = current.Add(24*time.Hour + time.Second)
	result, err := store.Consume(ctx, "ip", 2, 24*time.Hour)
	if err != nil {
		t.Fatalf("Consume returned error: %v", err)
	}
	if !result.Allowed {
		t.Fatal("first request of a new window should be allowed")
	}
	if result.Remaining != 1 {
		t.Errorf("remaining = %d, want 1 (count restarted at 1)", result.Remaining)
	}
	if want := current.Add(24 * time.Hour); !result.ResetAt.Equal(want) {
		t.Errorf("resetAt = %v, want %v", result.ResetAt, want)
	}
}

func TestMemoryStoreSweep(t *testing.T) {
	store := NewMemoryStore(5)
	current := time.Now()
	store.now = func() time.Time { return current }
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		store.Consume(ctx, fmt.Sprintf("ip-%d", i), 10, time.Hour)
	}
	if store.Len() != 6 {
		t.Fatalf("Len() = %d, want 6", store.Len())
	}

	// All six windows expire; the next consume crosses the sweep
	// threshold and evicts them.
	current = current.Add(2 * time.Hour)
	store.Consume(ctx, "fresh", 10, time.Hour)
	if store.Len() != 1 {
		t.Errorf("Len() after sweep = %d, want 1", store.Len())
	}
}

func TestMemoryStoreIsolatesIdentifiers(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()

	if result, _ := store.Consume(ctx, "a", 1, time.Hour); !result.Allowed {
		t.Fatal("first request for a should be allowed")
	}
	if result, _ := store.Consume(ctx, "a", 1, time.Hour); result.Allowed {
		t.Fatal("second request for a should be denied")
	}
	if result, _ := store.Consume(ctx, "b", 1, time.Hour); !result.Allowed {
		t.Error("a's exhausted quota must not affect b")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			name:    "forwarded for single",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.7"},
			want:    "203.0.113.7",
		},
		{
			name:    "forwarded for chain takes first",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1, 10.0.0.2"},
			want:    "203.0.113.7",
		},
		{
			name:    "real ip fallback",
			headers: map[string]string{"X-Real-Ip": "198.51.100.3"},
			want:    "198.51.100.3",
		},
		{
			name: "forwarded for wins over real ip",
			headers: map[string]string{
				"X-Forwarded-For": "203.0.113.7",
				"X-Real-Ip":       "198.51.100.3",
			},
			want: "203.0.113.7",
		},
		{
			name:    "vercel fallback",
			headers: map[string]string{"X-Vercel-Forwarded-For": "192.0.2.9, 10.0.0.1"},
			want:    "192.0.2.9",
		},
		{
			name:    "no headers",
			headers: map[string]string{},
			want:    UnknownIdentifier,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodPost, "/api/chat", nil)
			for key, value := range tt.headers {
				req.Header.Set(key, value)
			}
			if got := ClientIP(req); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

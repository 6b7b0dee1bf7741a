package titlegen

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

type fakeCompleter struct {
	response string
	err      error
	lastUser string
}

func (f *fakeCompleter) Complete(ctx context.Context, model, system, user string) (string, error) {
	f.lastUser = user
	return f.response, f.err
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Planning a trip to Japan", "Planning a trip to Japan"},
		{"strips double quotes", `"Planning a trip"`, "Planning a trip"},
		{"strips single quotes", "Rust's borrow checker", "Rusts borrow checker"},
		{"strips smart quotes", "“Hello” and ‘world’", "Hello and world"},
		{"strips colons", "Go: a retrospective", "Go a retrospective"},
		{"trims whitespace", "  padded title  ", "padded title"},
		{"empty", "", ""},
		{"only forbidden runes", `":"`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeTruncates(t *testing.T) {
	long := strings.Repeat("word ", 40)
	got := Sanitize(long)
	if utf8.RuneCountInString(got) > 80 {
		t.Errorf("sanitized title has %d runes, want <= 80", utf8.RuneCountInString(got))
	}

	// Truncation counts runes, not bytes.
	multibyte := strings.Repeat("日", 100)
	got = Sanitize(multibyte)
	if utf8.RuneCountInString(got) != 80 {
		t.Errorf("multibyte title has %d runes, want 80", utf8.RuneCountInString(got))
	}
}

func TestGenerate(t *testing.T) {
	completer := &fakeCompleter{response: `"Trip planning: Japan"`}
	generator := NewGenerator(completer, "test-model")

	title, err := generator.Generate(context.Background(), "Help me plan a trip to Japan")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if title != "Trip planning Japan" {
		t.Errorf("title = %q, want %q", title, "Trip planning Japan")
	}
	if completer.lastUser != "Help me plan a trip to Japan" {
		t.Errorf("completer received %q as user message", completer.lastUser)
	}
}

func TestGenerateSingleAttemptOnError(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("provider unavailable")}
	generator := NewGenerator(completer, "test-model")

	title, err := generator.Generate(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error from failed completion")
	}
	if title != "" {
		t.Errorf("title = %q, want empty on failure", title)
	}
}

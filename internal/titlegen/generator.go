// Package titlegen turns the first user message of a chat into a short
// title, out of band and best-effort.
package titlegen

import (
	"context"
	"strings"
	"unicode/utf8"
)

const maxTitleLength = 80

const systemPrompt = `- you will generate a short title based on the first message a user begins a conversation with
- ensure it is not more than 80 characters long
- the title should be a summary of the user's message
- do not use quotes or colons`

// Completer is the one-shot completion contract the generator needs.
type Completer interface {
	Complete(ctx context.Context, model, system, user string) (string, error)
}

// Generator produces chat titles via a single non-streaming model call.
type Generator struct {
	completer Completer
	model     string
}

func NewGenerator(completer Completer, model string) *Generator {
	return &Generator{completer: completer, model: model}
}

// Generate returns a sanitized title for the first user message.
// Single attempt; callers swallow and log errors.
func (g *Generator) Generate(ctx context.Context, firstUserMessage string) (string, error) {
	title, err := g.completer.Complete(ctx, g.model, systemPrompt, firstUserMessage)
	if err != nil {
		return "", err
	}
	return Sanitize(title), nil
}

// Sanitize enforces the title contract regardless of model behavior:
// no quotes, no colons, at most 80 characters.
func Sanitize(title string) string {
	title = strings.TrimSpace(title)
	title = strings.Map(func(r rune) rune {
		switch r {
		case '"', '\'', '“', '”', '‘', '’', ':':
			return -1
		}
		return r
	}, title)
	title = strings.TrimSpace(title)

	if utf8.RuneCountInString(title) > maxTitleLength {
		runes := []rune(title)
		title = strings.TrimSpace(string(runes[:maxTitleLength]))
	}
	return title
}

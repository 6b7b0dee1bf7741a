package chat

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// wordChunker re-chunks a delta stream at word granularity so tokens
// are not flushed to the client faster than one word at a time. Not
// safe for concurrent use; each request owns one.
type wordChunker struct {
	pending string
}

// Add appends a delta and returns every complete word (with its
// trailing whitespace) now ready to flush.
func (c *wordChunker) Add(delta string) []string {
	c.pending += delta

	var chunks []string
	for {
		i := strings.IndexFunc(c.pending, unicode.IsSpace)
		if i < 0 {
			break
		}
		_, size := utf8.DecodeRuneInString(c.pending[i:])
		chunks = append(chunks, c.pending[:i+size])
		c.pending = c.pending[i+size:]
	}
	return chunks
}

// Flush returns whatever is buffered, for end of stream.
func (c *wordChunker) Flush() string {
	rest := c.pending
	c.pending = ""
	return rest
}

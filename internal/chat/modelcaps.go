package chat

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

// SmoothingPolicy selects how token deltas are paced to the client.
type SmoothingPolicy string

const (
	// SmoothingWord buffers deltas and flushes at word granularity.
	SmoothingWord SmoothingPolicy = "word"
	// SmoothingNone passes deltas through untouched. Reasoning models
	// get this so thinking output is not re-paced.
	SmoothingNone SmoothingPolicy = "none"
)

// defaultThinkingBudget is the extended-thinking token budget passed to
// the provider for reasoning models.
const defaultThinkingBudget = 10000

// Capabilities describes how the stream must be built for one model.
// Resolved once at request start; the streaming loop never inspects
// model names.
type Capabilities struct {
	Reasoning      bool
	ThinkingBudget int
	Smoothing      SmoothingPolicy
}

// reasoningMarkers classify model ids that are not in the catalog.
// Naming conventions are the only signal available for the long tail of
// provider models.
var reasoningMarkers = []string{"reasoning", "thinking", "o1", "o3", "deepseek-r1"}

// Catalog maps model ids to capability descriptors. Built-in entries
// cover the models the product exposes; a yaml file can extend or
// override them.
type Catalog struct {
	entries map[string]Capabilities
}

func NewCatalog() *Catalog {
	c := &Catalog{entries: make(map[string]Capabilities)}

	for _, id := range []string{
		"xiaomi/mimo-v2-flash:free",
		"meta-llama/llama-3.3-70b-instruct",
		"google/gemini-2.0-flash-001",
	} {
		c.entries[id] = Capabilities{Smoothing: SmoothingWord}
	}

	for _, id := range []string{
		"deepseek/deepseek-r1",
		"openai/o1",
		"openai/o3-mini",
		"anthropic/claude-3.7-sonnet:thinking",
	} {
		c.entries[id] = Capabilities{
			Reasoning:      true,
			ThinkingBudget: defaultThinkingBudget,
			Smoothing:      SmoothingNone,
		}
	}

	return c
}

type catalogFile struct {
	Models []struct {
		Model          string `yaml:"model"`
		Reasoning      bool   `yaml:"reasoning"`
		ThinkingBudget int    `yaml:"thinking_budget"`
	} `yaml:"models"`
}

// LoadFile merges catalog entries from a yaml file over the built-ins.
func (c *Catalog) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open model catalog: %w", err)
	}
	defer f.Close()

	var file catalogFile
	if err := yaml.NewDecoder(f).Decode(&file); err != nil {
		return fmt.Errorf("decode model catalog: %w", err)
	}

	for _, m := range file.Models {
		caps := Capabilities{Smoothing: SmoothingWord}
		if m.Reasoning {
			caps.Reasoning = true
			caps.ThinkingBudget = m.ThinkingBudget
			if caps.ThinkingBudget <= 0 {
				caps.ThinkingBudget = defaultThinkingBudget
			}
			caps.Smoothing = SmoothingNone
		}
		c.entries[m.Model] = caps
	}
	return nil
}

// Resolve returns the capability descriptor for a model id. Unknown ids
// fall back to name classification.
func (c *Catalog) Resolve(modelID string) Capabilities {
	if caps, exists := c.entries[modelID]; exists {
		return caps
	}

	normalized := strings.ToLower(modelID)
	for _, marker := range reasoningMarkers {
		if strings.Contains(normalized, marker) {
			return Capabilities{
				Reasoning:      true,
				ThinkingBudget: defaultThinkingBudget,
				Smoothing:      SmoothingNone,
			}
		}
	}

	return Capabilities{Smoothing: SmoothingWord}
}

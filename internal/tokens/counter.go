package tokens

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Counter estimates token usage for prompts and message histories.
// Encoders are cached per model since tiktoken initialization is not cheap.
type Counter struct {
	mu       sync.Mutex
	encoders map[string]*tiktoken.Tiktoken
}

func NewCounter() *Counter {
	return &Counter{encoders: make(map[string]*tiktoken.Tiktoken)}
}

func (c *Counter) encoderFor(model string) *tiktoken.Tiktoken {
	// Provider-prefixed names like "openai/gpt-4o-mini" are not known to
	// tiktoken, so strip the prefix before lookup.
	name := model
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if enc, ok := c.encoders[name]; ok {
		return enc
	}

	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			c.encoders[name] = nil
			return nil
		}
	}
	c.encoders[name] = enc
	return enc
}

// Count returns the token count of text for the given model. When no
// encoding is available it falls back to a chars/4 estimate.
func (c *Counter) Count(text, model string) int {
	if text == "" {
		return 0
	}
	enc := c.encoderFor(model)
	if enc == nil {
		return estimate(text)
	}
	return len(enc.Encode(text, nil, nil))
}

// CountMessages sums token counts across message contents, adding a small
// per-message overhead for role and framing tokens.
func (c *Counter) CountMessages(contents []string, model string) int {
	const perMessageOverhead = 4

	total := 0
	for _, content := range contents {
		total += c.Count(content, model) + perMessageOverhead
	}
	return total
}

func estimate(text string) int {
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}

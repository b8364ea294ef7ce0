package tokens

import "testing"

func TestCountEmpty(t *testing.T) {
	c := NewCounter()
	if got := c.Count("", "gpt-4o-mini"); got != 0 {
		t.Errorf("expected 0 tokens for empty text, got %d", got)
	}
}

func TestCountNonEmpty(t *testing.T) {
	c := NewCounter()
	got := c.Count("Hello, world! This is a test sentence.", "gpt-4o-mini")
	if got <= 0 {
		t.Errorf("expected positive token count, got %d", got)
	}
}

func TestCountProviderPrefixedModel(t *testing.T) {
	c := NewCounter()
	plain := c.Count("the same text", "gpt-4o-mini")
	prefixed := c.Count("the same text", "openai/gpt-4o-mini")
	if plain != prefixed {
		t.Errorf("prefixed model should use the same encoding: %d vs %d", plain, prefixed)
	}
}

func TestCountUnknownModelFallsBack(t *testing.T) {
	c := NewCounter()
	got := c.Count("some text for an unknown model", "totally-unknown-model-v99")
	if got <= 0 {
		t.Errorf("expected positive count from fallback, got %d", got)
	}
}

func TestCountMessagesAddsOverhead(t *testing.T) {
	c := NewCounter()
	contents := []string{"first message", "second message"}
	sum := c.Count(contents[0], "gpt-4o-mini") + c.Count(contents[1], "gpt-4o-mini")
	got := c.CountMessages(contents, "gpt-4o-mini")
	if got != sum+8 {
		t.Errorf("expected %d (content + 4 per message), got %d", sum+8, got)
	}
}

func TestEstimate(t *testing.T) {
	if got := estimate("abcdefgh"); got != 2 {
		t.Errorf("expected 2, got %d", got)
	}
	if got := estimate("ab"); got != 1 {
		t.Errorf("short text should estimate at least 1, got %d", got)
	}
}

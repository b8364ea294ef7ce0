// Package contextmgr keeps chat prompts inside a model's context window.
// It measures token usage, picks a reduction strategy, and rewrites the
// history so the suffix of recent messages always survives intact.
package contextmgr

import (
	"context"
	"log"
	"strings"

	"praxis-backend/internal/llm"
	"praxis-backend/internal/tokens"
)

const (
	StrategyNone      = "none"
	StrategyTruncate  = "truncate"
	StrategySummarize = "summarize"
	StrategyHybrid    = "hybrid"
)

const (
	// defaultKeepLast applies when truncation has no computed keep count.
	defaultKeepLast = 10
	// summarizeHistoryThreshold is the history length above which plain
	// truncation beats summarizing, since summarizing very long histories
	// costs an extra model round trip over a huge prompt.
	summarizeHistoryThreshold = 50
	minSummaryTokens          = 1000
)

// Check reports token usage of a prospective prompt against the model's window.
type Check struct {
	TotalTokens   int  `json:"total_tokens"`
	SystemTokens  int  `json:"system_tokens"`
	HistoryTokens int  `json:"history_tokens"`
	CurrentTokens int  `json:"current_tokens"`
	ContextLimit  int  `json:"context_limit"`
	SafeLimit     int  `json:"safe_limit"`
	ExceedsLimit  bool `json:"exceeds_limit"`
}

// Plan is the chosen reduction strategy with its parameters.
type Plan struct {
	Strategy     string `json:"strategy"`
	KeepLastN    int    `json:"keep_last_n,omitempty"`
	TargetTokens int    `json:"target_tokens,omitempty"`
}

// Summarizer condenses text to roughly targetTokens.
type Summarizer interface {
	Summarize(ctx context.Context, text string, targetTokens int, model string) (string, error)
}

// Limits resolves a model's context window size.
type Limits interface {
	ContextLength(ctx context.Context, model string) int
}

type Manager struct {
	counter      *tokens.Counter
	summarizer   Summarizer
	limits       Limits
	bufferTokens int
}

func NewManager(counter *tokens.Counter, summarizer Summarizer, limits Limits, bufferTokens int) *Manager {
	if bufferTokens <= 0 {
		bufferTokens = 2048
	}
	return &Manager{
		counter:      counter,
		summarizer:   summarizer,
		limits:       limits,
		bufferTokens: bufferTokens,
	}
}

// CheckContext measures the full prompt against the model's context window.
// SafeLimit reserves bufferTokens headroom for the response.
func (m *Manager) CheckContext(ctx context.Context, system string, history []llm.Message, current, model string) Check {
	contents := make([]string, len(history))
	for i, msg := range history {
		contents[i] = msg.Content
	}

	check := Check{
		SystemTokens:  m.counter.Count(system, model),
		HistoryTokens: m.counter.CountMessages(contents, model),
		CurrentTokens: m.counter.Count(current, model),
		ContextLimit:  m.limits.ContextLength(ctx, model),
	}
	check.TotalTokens = check.SystemTokens + check.HistoryTokens + check.CurrentTokens
	check.SafeLimit = check.ContextLimit - m.bufferTokens
	check.ExceedsLimit = check.TotalTokens > check.SafeLimit
	return check
}

// DecideStrategy picks how to shrink the prompt. Long histories are
// truncated, short ones summarized. The keep count for truncation scales
// with how far over budget the prompt is.
func (m *Manager) DecideStrategy(check Check, historyCount int) Plan {
	if !check.ExceedsLimit {
		return Plan{Strategy: StrategyNone}
	}

	if historyCount > summarizeHistoryThreshold {
		excess := check.TotalTokens - check.SafeLimit
		keep := historyCount - excess/100
		if keep < defaultKeepLast {
			keep = defaultKeepLast
		}
		return Plan{Strategy: StrategyTruncate, KeepLastN: keep}
	}

	target := check.SafeLimit - check.SystemTokens - check.CurrentTokens
	if target < minSummaryTokens {
		target = minSummaryTokens
	}
	return Plan{Strategy: StrategySummarize, TargetTokens: target}
}

// Reduce applies the plan to the history. The most recent messages are never
// rewritten; the result is always no longer than the input.
func (m *Manager) Reduce(ctx context.Context, history []llm.Message, plan Plan, model string) []llm.Message {
	switch plan.Strategy {
	case StrategyNone:
		return history
	case StrategyTruncate:
		keep := plan.KeepLastN
		if keep <= 0 {
			keep = defaultKeepLast
		}
		return lastN(history, keep)
	case StrategySummarize:
		return m.summarize(ctx, history, defaultKeepLast, plan.TargetTokens, model)
	case StrategyHybrid:
		keep := plan.KeepLastN
		if keep <= 0 {
			keep = defaultKeepLast
		}
		return m.summarize(ctx, history, keep, plan.TargetTokens, model)
	default:
		return history
	}
}

// Fit runs the full check/decide/reduce pipeline for one prompt.
func (m *Manager) Fit(ctx context.Context, system string, history []llm.Message, current, model string) ([]llm.Message, Check, Plan) {
	check := m.CheckContext(ctx, system, history, current, model)
	plan := m.DecideStrategy(check, len(history))
	return m.Reduce(ctx, history, plan, model), check, plan
}

// summarize keeps the recent tail and replaces the dropped prefix with a
// model-generated summary message. If summarization fails the history is
// truncated instead.
func (m *Manager) summarize(ctx context.Context, history []llm.Message, keep, targetTokens int, model string) []llm.Message {
	if keep > len(history) {
		keep = len(history)
	}
	dropped := history[:len(history)-keep]
	tail := history[len(history)-keep:]

	if len(dropped) == 0 || m.summarizer == nil {
		return tail
	}

	summary, err := m.summarizer.Summarize(ctx, renderTranscript(dropped), targetTokens, model)
	if err != nil || summary == "" {
		log.Printf("falling back to truncation: summarize failed: %v", err)
		fallbackKeep := len(history) / 2
		if fallbackKeep < 5 {
			fallbackKeep = 5
		}
		return lastN(history, fallbackKeep)
	}

	out := make([]llm.Message, 0, len(tail)+1)
	out = append(out, llm.Message{
		Role:    "system",
		Content: "Summary of earlier conversation: " + summary,
	})
	out = append(out, tail...)
	return out
}

func lastN(history []llm.Message, n int) []llm.Message {
	if n >= len(history) {
		return history
	}
	return history[len(history)-n:]
}

func renderTranscript(messages []llm.Message) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}

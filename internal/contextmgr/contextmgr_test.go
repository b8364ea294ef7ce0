package contextmgr

import (
	"context"
	"errors"
	"strings"
	"testing"

	"praxis-backend/internal/llm"
	"praxis-backend/internal/tokens"
)

type fixedLimits struct {
	limit int
}

func (f fixedLimits) ContextLength(ctx context.Context, model string) int {
	return f.limit
}

type fakeSummarizer struct {
	summary string
	err     error
	calls   int
}

func (f *fakeSummarizer) Summarize(ctx context.Context, text string, targetTokens int, model string) (string, error) {
	f.calls++
	return f.summary, f.err
}

func newManager(limit int, s Summarizer) *Manager {
	return NewManager(tokens.NewCounter(), s, fixedLimits{limit: limit}, 2048)
}

func history(n int, content string) []llm.Message {
	msgs := make([]llm.Message, n)
	for i := range msgs {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		msgs[i] = llm.Message{Role: role, Content: content}
	}
	return msgs
}

func TestCheckContextWithinLimit(t *testing.T) {
	m := newManager(32000, nil)
	check := m.CheckContext(context.Background(), "You are helpful.", history(4, "short message"), "hi", "gpt-4o-mini")

	if check.ExceedsLimit {
		t.Fatal("small prompt should fit")
	}
	if check.SafeLimit != 32000-2048 {
		t.Errorf("safe limit should reserve the buffer, got %d", check.SafeLimit)
	}
	if check.TotalTokens != check.SystemTokens+check.HistoryTokens+check.CurrentTokens {
		t.Error("total should be the sum of the parts")
	}
}

func TestCheckContextExceedsLimit(t *testing.T) {
	m := newManager(4096, nil)
	big := strings.Repeat("word ", 2000)
	check := m.CheckContext(context.Background(), "", history(10, big), "hi", "gpt-4o-mini")

	if !check.ExceedsLimit {
		t.Fatal("oversized prompt should exceed the limit")
	}
}

func TestDecideStrategyNoneWhenFits(t *testing.T) {
	m := newManager(32000, nil)
	plan := m.DecideStrategy(Check{TotalTokens: 100, SafeLimit: 29952}, 10)
	if plan.Strategy != StrategyNone {
		t.Errorf("expected none, got %s", plan.Strategy)
	}
}

func TestDecideStrategyTruncateForLongHistory(t *testing.T) {
	m := newManager(32000, nil)
	check := Check{TotalTokens: 35000, SafeLimit: 29952, ExceedsLimit: true}
	plan := m.DecideStrategy(check, 80)

	if plan.Strategy != StrategyTruncate {
		t.Fatalf("expected truncate, got %s", plan.Strategy)
	}
	// excess 5048, so keep 80 - 50 = 30
	if plan.KeepLastN != 30 {
		t.Errorf("expected keep 30, got %d", plan.KeepLastN)
	}
}

func TestDecideStrategyTruncateKeepFloor(t *testing.T) {
	m := newManager(32000, nil)
	check := Check{TotalTokens: 50000, SafeLimit: 29952, ExceedsLimit: true}
	plan := m.DecideStrategy(check, 60)

	// excess 20048 would compute keep 60 - 200 < 0; floor at 10
	if plan.KeepLastN != 10 {
		t.Errorf("expected keep floor of 10, got %d", plan.KeepLastN)
	}
}

func TestDecideStrategySummarizeForShortHistory(t *testing.T) {
	m := newManager(32000, nil)
	check := Check{
		TotalTokens:   35000,
		SystemTokens:  500,
		CurrentTokens: 200,
		SafeLimit:     29952,
		ExceedsLimit:  true,
	}
	plan := m.DecideStrategy(check, 20)

	if plan.Strategy != StrategySummarize {
		t.Fatalf("expected summarize, got %s", plan.Strategy)
	}
	if plan.TargetTokens != 29952-500-200 {
		t.Errorf("expected target %d, got %d", 29952-500-200, plan.TargetTokens)
	}
}

func TestDecideStrategySummarizeTargetFloor(t *testing.T) {
	m := newManager(4096, nil)
	check := Check{
		TotalTokens:   5000,
		SystemTokens:  1500,
		CurrentTokens: 1000,
		SafeLimit:     2048,
		ExceedsLimit:  true,
	}
	plan := m.DecideStrategy(check, 5)

	if plan.TargetTokens != 1000 {
		t.Errorf("expected target floor of 1000, got %d", plan.TargetTokens)
	}
}

func TestReduceNoneIsIdentity(t *testing.T) {
	m := newManager(32000, nil)
	msgs := history(6, "hello")
	out := m.Reduce(context.Background(), msgs, Plan{Strategy: StrategyNone}, "gpt-4o-mini")
	if len(out) != 6 {
		t.Errorf("expected all 6 messages, got %d", len(out))
	}
}

func TestReduceTruncateKeepsSuffix(t *testing.T) {
	m := newManager(32000, nil)
	msgs := make([]llm.Message, 20)
	for i := range msgs {
		msgs[i] = llm.Message{Role: "user", Content: string(rune('a' + i))}
	}

	out := m.Reduce(context.Background(), msgs, Plan{Strategy: StrategyTruncate, KeepLastN: 5}, "gpt-4o-mini")
	if len(out) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(out))
	}
	for i, msg := range out {
		if msg.Content != msgs[15+i].Content {
			t.Errorf("message %d: expected %q, got %q", i, msgs[15+i].Content, msg.Content)
		}
	}
}

func TestReduceHybridUsesKeepLastN(t *testing.T) {
	m := newManager(32000, nil)
	out := m.Reduce(context.Background(), history(30, "x"), Plan{Strategy: StrategyHybrid, KeepLastN: 12}, "gpt-4o-mini")
	if len(out) != 12 {
		t.Errorf("expected 12 messages, got %d", len(out))
	}
}

func TestReduceHybridSummarizesDroppedPrefix(t *testing.T) {
	s := &fakeSummarizer{summary: "earlier small talk"}
	m := newManager(32000, s)
	msgs := history(30, "x")

	out := m.Reduce(context.Background(), msgs, Plan{Strategy: StrategyHybrid, KeepLastN: 12, TargetTokens: 1500}, "gpt-4o-mini")

	if s.calls != 1 {
		t.Fatalf("expected one summarizer call, got %d", s.calls)
	}
	// summary message + last 12
	if len(out) != 13 {
		t.Fatalf("expected 13 messages, got %d", len(out))
	}
	if out[0].Role != "system" || !strings.Contains(out[0].Content, "earlier small talk") {
		t.Errorf("expected leading summary message, got %+v", out[0])
	}
}

func TestReduceSummarizePrependsSummary(t *testing.T) {
	s := &fakeSummarizer{summary: "they discussed the weather"}
	m := newManager(32000, s)
	msgs := history(25, "some message")

	out := m.Reduce(context.Background(), msgs, Plan{Strategy: StrategySummarize, TargetTokens: 2000}, "gpt-4o-mini")

	if s.calls != 1 {
		t.Fatalf("expected one summarizer call, got %d", s.calls)
	}
	// summary message + last 10
	if len(out) != 11 {
		t.Fatalf("expected 11 messages, got %d", len(out))
	}
	if out[0].Role != "system" || !strings.Contains(out[0].Content, "they discussed the weather") {
		t.Errorf("expected leading summary message, got %+v", out[0])
	}
	for i := 1; i < len(out); i++ {
		if out[i].Content != msgs[15+i-1].Content {
			t.Errorf("recent tail should be unchanged at index %d", i)
		}
	}
}

func TestReduceSummarizeFallsBackToTruncation(t *testing.T) {
	s := &fakeSummarizer{err: errors.New("model unavailable")}
	m := newManager(32000, s)
	msgs := history(24, "some message")

	out := m.Reduce(context.Background(), msgs, Plan{Strategy: StrategySummarize, TargetTokens: 2000}, "gpt-4o-mini")

	// fallback keeps half the history
	if len(out) != 12 {
		t.Fatalf("expected 12 messages after fallback, got %d", len(out))
	}
	if out[len(out)-1].Content != msgs[len(msgs)-1].Content {
		t.Error("fallback should keep the most recent messages")
	}
}

func TestReduceSummarizeFallbackFloor(t *testing.T) {
	s := &fakeSummarizer{err: errors.New("model unavailable")}
	m := newManager(32000, s)
	msgs := history(12, "m")

	out := m.Reduce(context.Background(), msgs, Plan{Strategy: StrategySummarize, TargetTokens: 2000}, "gpt-4o-mini")
	if len(out) < 5 {
		t.Errorf("fallback should keep at least 5 messages, got %d", len(out))
	}
}

func TestReduceNeverGrowsHistory(t *testing.T) {
	s := &fakeSummarizer{summary: "summary"}
	m := newManager(32000, s)
	for _, strategy := range []string{StrategyNone, StrategyTruncate, StrategySummarize, StrategyHybrid} {
		msgs := history(15, "hello there")
		out := m.Reduce(context.Background(), msgs, Plan{Strategy: strategy, KeepLastN: 10, TargetTokens: 1500}, "gpt-4o-mini")
		if len(out) > len(msgs) {
			t.Errorf("strategy %s grew the history: %d > %d", strategy, len(out), len(msgs))
		}
	}
}

func TestFitPipeline(t *testing.T) {
	m := newManager(32000, nil)
	msgs := history(4, "hi")
	out, check, plan := m.Fit(context.Background(), "system", msgs, "hello", "gpt-4o-mini")

	if plan.Strategy != StrategyNone {
		t.Errorf("expected none, got %s", plan.Strategy)
	}
	if check.ExceedsLimit {
		t.Error("should fit")
	}
	if len(out) != len(msgs) {
		t.Errorf("history should be unchanged")
	}
}

package llm

import (
	"context"
	"fmt"
	"log"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Message is a provider-neutral chat message.
type Message struct {
	Role    string
	Content string
}

// Usage reports token consumption for one request.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// Params carry per-request generation settings. Zero values fall back to
// provider defaults.
type Params struct {
	Model       string
	MaxTokens   int
	Temperature *float64
	TopP        *float64
	Stop        []string
}

// Chunk is one piece of a streamed completion.
type Chunk struct {
	Text string
	Done bool
}

// Client wraps an OpenAI-compatible chat completions endpoint. Requests go
// through a circuit breaker and a concurrency limiter so a slow or failing
// provider cannot pile up goroutines.
type Client struct {
	api          openai.Client
	breaker      *CircuitBreaker
	rateChan     chan struct{}
	defaultModel string
}

func NewClient(apiKey, baseURL, defaultModel string, maxConcurrent int) *Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}
	return &Client{
		api:          openai.NewClient(opts...),
		breaker:      NewCircuitBreaker(),
		rateChan:     make(chan struct{}, maxConcurrent),
		defaultModel: defaultModel,
	}
}

// Breaker exposes the circuit breaker, mainly so metrics can observe state.
func (c *Client) Breaker() *CircuitBreaker {
	return c.breaker
}

func (c *Client) DefaultModel() string {
	return c.defaultModel
}

func (c *Client) acquire(ctx context.Context) error {
	if !c.breaker.Allow() {
		return ErrCircuitOpen
	}
	select {
	case c.rateChan <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) release() {
	<-c.rateChan
}

func (c *Client) buildParams(messages []Message, p Params) openai.ChatCompletionNewParams {
	model := p.Model
	if model == "" {
		model = c.defaultModel
	}

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case "assistant":
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Messages: msgs,
		Model:    model,
	}
	if p.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(p.MaxTokens))
	}
	if p.Temperature != nil {
		params.Temperature = openai.Float(*p.Temperature)
	}
	if p.TopP != nil {
		params.TopP = openai.Float(*p.TopP)
	}
	if len(p.Stop) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: p.Stop}
	}
	return params
}

// ChatCompletion runs a non-streaming chat request and returns the first
// choice's text.
func (c *Client) ChatCompletion(ctx context.Context, messages []Message, p Params) (string, Usage, error) {
	if err := c.acquire(ctx); err != nil {
		return "", Usage{}, err
	}
	defer c.release()

	resp, err := c.api.Chat.Completions.New(ctx, c.buildParams(messages, p))
	if err != nil {
		c.breaker.RecordFailure()
		return "", Usage{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		c.breaker.RecordFailure()
		return "", Usage{}, fmt.Errorf("chat completion: no choices returned")
	}
	c.breaker.RecordSuccess()

	usage := Usage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
	}
	return resp.Choices[0].Message.Content, usage, nil
}

// StreamChatCompletion runs a streaming chat request. Chunks are delivered on
// the returned channel; the final chunk has Done set. The error channel
// receives at most one error.
func (c *Client) StreamChatCompletion(ctx context.Context, messages []Message, p Params) (<-chan Chunk, <-chan error) {
	out := make(chan Chunk, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		if err := c.acquire(ctx); err != nil {
			errCh <- err
			return
		}
		defer c.release()

		stream := c.api.Chat.Completions.NewStreaming(ctx, c.buildParams(messages, p))
		for stream.Next() {
			chunk := stream.Current()
			for _, choice := range chunk.Choices {
				if choice.Delta.Content != "" {
					select {
					case out <- Chunk{Text: choice.Delta.Content}:
					case <-ctx.Done():
						errCh <- ctx.Err()
						return
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			c.breaker.RecordFailure()
			errCh <- fmt.Errorf("chat completion stream: %w", err)
			return
		}
		c.breaker.RecordSuccess()
		out <- Chunk{Done: true}
	}()

	return out, errCh
}

// Summarize condenses text to roughly targetTokens using the model itself.
func (c *Client) Summarize(ctx context.Context, text string, targetTokens int, model string) (string, error) {
	prompt := fmt.Sprintf(
		"Summarize the following conversation in at most %d tokens. Preserve key facts, decisions, and open questions.\n\n%s",
		targetTokens, text,
	)
	summary, _, err := c.ChatCompletion(ctx, []Message{
		{Role: "system", Content: "You compress conversation history into concise summaries."},
		{Role: "user", Content: prompt},
	}, Params{Model: model, MaxTokens: targetTokens})
	if err != nil {
		log.Printf("history summarization failed: %v", err)
		return "", err
	}
	return summary, nil
}

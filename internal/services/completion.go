package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"praxis-backend/internal/llm"
	"praxis-backend/internal/metrics"
	"praxis-backend/internal/models"
	"praxis-backend/internal/repository"
	"praxis-backend/internal/tokens"
)

// Generation defaults applied when the request omits the fields.
const (
	defaultMaxTokens   = 100
	defaultTemperature = 0.7
)

type CompletionService struct {
	repo      *repository.CompletionRepo
	llmClient *llm.Client
	counter   *tokens.Counter
}

func NewCompletionService(repo *repository.CompletionRepo, llmClient *llm.Client, counter *tokens.Counter) *CompletionService {
	return &CompletionService{repo: repo, llmClient: llmClient, counter: counter}
}

func (s *CompletionService) buildPrompt(req models.CompletionRequest) ([]llm.Message, llm.Params) {
	var messages []llm.Message
	if req.SystemMessage != "" {
		messages = append(messages, llm.Message{Role: models.RoleSystem, Content: req.SystemMessage})
	}
	messages = append(messages, llm.Message{Role: models.RoleUser, Content: req.Prompt})

	model := req.Model
	if model == "" {
		model = s.llmClient.DefaultModel()
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	temperature := req.Temperature
	if temperature == nil {
		t := float64(defaultTemperature)
		temperature = &t
	}
	return messages, llm.Params{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
	}
}

// Create runs a synchronous completion and records it.
func (s *CompletionService) Create(ctx context.Context, userID uuid.UUID, req models.CompletionRequest) (*models.CompletionResponse, error) {
	messages, params := s.buildPrompt(req)

	text, usage, err := s.llmClient.ChatCompletion(ctx, messages, params)
	if err != nil {
		metrics.ObserveLLM(params.Model, "error", 0, 0)
		return nil, mapLLMError(err)
	}
	metrics.ObserveLLM(params.Model, "success", usage.PromptTokens, usage.CompletionTokens)

	s.record(ctx, userID, params.Model, req.Prompt, text, usage)

	return &models.CompletionResponse{
		Text:  text,
		Model: params.Model,
		Usage: map[string]int{
			"prompt_tokens":     usage.PromptTokens,
			"completion_tokens": usage.CompletionTokens,
			"total_tokens":      usage.PromptTokens + usage.CompletionTokens,
		},
		Timestamp: time.Now(),
	}, nil
}

// Stream runs a streaming completion. The caller consumes chunks; the full
// text is recorded once the stream finishes.
func (s *CompletionService) Stream(ctx context.Context, userID uuid.UUID, req models.CompletionRequest) (<-chan llm.Chunk, <-chan error, string) {
	messages, params := s.buildPrompt(req)

	chunks, errs := s.llmClient.StreamChatCompletion(ctx, messages, params)

	out := make(chan llm.Chunk, 32)
	outErrs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(outErrs)

		var full string
		for chunk := range chunks {
			full += chunk.Text
			out <- chunk
		}
		if err := <-errs; err != nil {
			metrics.ObserveLLM(params.Model, "error", 0, 0)
			outErrs <- mapLLMError(err)
			return
		}

		promptTokens := s.counter.Count(req.Prompt, params.Model)
		completionTokens := s.counter.Count(full, params.Model)
		metrics.ObserveLLM(params.Model, "success", promptTokens, completionTokens)

		s.record(context.WithoutCancel(ctx), userID, params.Model, req.Prompt, full, llm.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
		})
	}()

	return out, outErrs, params.Model
}

func (s *CompletionService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Completion, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

func (s *CompletionService) record(ctx context.Context, userID uuid.UUID, model, prompt, text string, usage llm.Usage) {
	row := &models.Completion{
		UserID:           userID,
		Model:            model,
		Prompt:           prompt,
		Text:             text,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		// Losing the audit row is not worth failing a delivered completion.
		log.Printf("failed to record completion: %v", err)
	}
}

package models

import (
	"time"

	"github.com/google/uuid"
)

type Completion struct {
	ID               uuid.UUID `json:"id"`
	UserID           uuid.UUID `json:"user_id"`
	Model            string    `json:"model"`
	Prompt           string    `json:"prompt"`
	Text             string    `json:"text"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	CreatedAt        time.Time `json:"created_at"`
}

type CompletionRequest struct {
	Prompt        string   `json:"prompt" validate:"required,min=1"`
	Model         string   `json:"model"`
	MaxTokens     int      `json:"max_tokens" validate:"omitempty,min=1,max=4000"`
	Temperature   *float64 `json:"temperature" validate:"omitempty,min=0,max=2"`
	TopP          *float64 `json:"top_p" validate:"omitempty,gt=0,max=1"`
	Stop          []string `json:"stop"`
	SystemMessage string   `json:"system_message"`
}

type CompletionResponse struct {
	Text      string         `json:"text"`
	Model     string         `json:"model"`
	Usage     map[string]int `json:"usage,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// StreamingCompletionChunk is one SSE frame of a streaming completion.
type StreamingCompletionChunk struct {
	Text  string `json:"text"`
	Model string `json:"model"`
	Done  bool   `json:"done"`
}

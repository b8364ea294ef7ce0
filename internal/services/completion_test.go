package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"praxis-backend/internal/models"
)

func TestBuildPromptAppliesDefaults(t *testing.T) {
	s := &CompletionService{}
	req := models.CompletionRequest{
		Prompt: "write a haiku",
		Model:  "openai/gpt-4o-mini",
	}

	messages, params := s.buildPrompt(req)

	require.Len(t, messages, 1)
	assert.Equal(t, models.RoleUser, messages[0].Role)
	assert.Equal(t, 100, params.MaxTokens)
	require.NotNil(t, params.Temperature)
	assert.Equal(t, 0.7, *params.Temperature)
	assert.Nil(t, params.TopP)
}

func TestBuildPromptKeepsExplicitValues(t *testing.T) {
	s := &CompletionService{}
	temp := 1.4
	topP := 0.9
	req := models.CompletionRequest{
		Prompt:        "write a haiku",
		Model:         "openai/gpt-4o-mini",
		SystemMessage: "You write haikus.",
		MaxTokens:     500,
		Temperature:   &temp,
		TopP:          &topP,
		Stop:          []string{"\n\n"},
	}

	messages, params := s.buildPrompt(req)

	require.Len(t, messages, 2)
	assert.Equal(t, models.RoleSystem, messages[0].Role)
	assert.Equal(t, 500, params.MaxTokens)
	assert.Equal(t, 1.4, *params.Temperature)
	assert.Equal(t, 0.9, *params.TopP)
	assert.Equal(t, []string{"\n\n"}, params.Stop)
}

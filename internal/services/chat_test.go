package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"praxis-backend/internal/models"
)

func TestSystemPromptDefault(t *testing.T) {
	req := models.ChatRequest{Message: "hello"}
	assert.Equal(t, defaultSystemPrompt, systemPrompt(req))
}

func TestSystemPromptOverride(t *testing.T) {
	req := models.ChatRequest{Message: "hello", Context: "You are a terse code reviewer."}
	assert.Equal(t, "You are a terse code reviewer.", systemPrompt(req))
}

func TestChatRequestContextDecodesAsString(t *testing.T) {
	var req models.ChatRequest
	err := json.Unmarshal([]byte(`{"message":"hi","context":"You are a pirate."}`), &req)
	require.NoError(t, err)

	assert.Equal(t, "You are a pirate.", req.Context)
	assert.Equal(t, "You are a pirate.", systemPrompt(req))
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"praxis-backend/internal/contextmgr"
	"praxis-backend/internal/events"
	"praxis-backend/internal/llm"
	"praxis-backend/internal/metrics"
	"praxis-backend/internal/models"
	"praxis-backend/internal/repository"
	"praxis-backend/internal/tokens"
)

const defaultSystemPrompt = "You are a helpful assistant."

// historyWindow caps how many stored messages are loaded per request. The
// context manager shrinks from there if the model's window is smaller.
const historyWindow = 100

type ChatService struct {
	chatRepo  *repository.ChatRepo
	llmClient *llm.Client
	ctxMgr    *contextmgr.Manager
	counter   *tokens.Counter
	publisher *events.ChatEventPublisher
	maxMsgLen int
}

func NewChatService(
	chatRepo *repository.ChatRepo,
	llmClient *llm.Client,
	ctxMgr *contextmgr.Manager,
	counter *tokens.Counter,
	publisher *events.ChatEventPublisher,
	maxMsgLen int,
) *ChatService {
	return &ChatService{
		chatRepo:  chatRepo,
		llmClient: llmClient,
		ctxMgr:    ctxMgr,
		counter:   counter,
		publisher: publisher,
		maxMsgLen: maxMsgLen,
	}
}

// SendMessage runs one chat turn: resolve the session, fit the history into
// the model's context window, call the model, and persist both sides of the
// exchange.
func (s *ChatService) SendMessage(ctx context.Context, userID uuid.UUID, req models.ChatRequest) (*models.ChatResponse, error) {
	if req.Message == "" {
		return nil, &ValidationError{Fields: map[string]string{"message": "Message is required"}}
	}
	if s.maxMsgLen > 0 && len(req.Message) > s.maxMsgLen {
		return nil, &ValidationError{Fields: map[string]string{
			"message": fmt.Sprintf("Message must be at most %d characters", s.maxMsgLen),
		}}
	}

	session, err := s.resolveSession(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	history, err := s.loadHistory(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	system := systemPrompt(req)

	fitted, _, _ := s.ctxMgr.Fit(ctx, system, history, req.Message, session.Model)

	prompt := make([]llm.Message, 0, len(fitted)+2)
	prompt = append(prompt, llm.Message{Role: models.RoleSystem, Content: system})
	prompt = append(prompt, fitted...)
	prompt = append(prompt, llm.Message{Role: models.RoleUser, Content: req.Message})

	reply, usage, err := s.llmClient.ChatCompletion(ctx, prompt, llm.Params{Model: session.Model})
	if err != nil {
		metrics.ObserveLLM(session.Model, "error", 0, 0)
		return nil, mapLLMError(err)
	}
	metrics.ObserveLLM(session.Model, "success", usage.PromptTokens, usage.CompletionTokens)

	userMsg := &models.ChatMessage{
		SessionID:  session.ID,
		Role:       models.RoleUser,
		Content:    req.Message,
		TokenCount: s.counter.Count(req.Message, session.Model),
	}
	if err := s.chatRepo.CreateMessage(ctx, userMsg); err != nil {
		return nil, err
	}

	assistantMsg := &models.ChatMessage{
		SessionID:  session.ID,
		Role:       models.RoleAssistant,
		Content:    reply,
		TokenCount: usage.CompletionTokens,
	}
	if assistantMsg.TokenCount == 0 {
		assistantMsg.TokenCount = s.counter.Count(reply, session.Model)
	}
	if err := s.chatRepo.CreateMessage(ctx, assistantMsg); err != nil {
		return nil, err
	}

	s.chatRepo.TouchSession(ctx, session.ID)

	s.publisher.Publish(ctx, events.ChatEvent{
		SessionID:     session.ID,
		UserID:        userID,
		Model:         session.Model,
		MessageChars:  len(req.Message),
		ResponseChars: len(reply),
		Timestamp:     time.Now(),
	})

	return &models.ChatResponse{
		Message:   reply,
		SessionID: session.ID,
		MessageID: assistantMsg.ID,
		Timestamp: assistantMsg.CreatedAt,
	}, nil
}

// systemPrompt returns the request's context override, or the default prompt.
func systemPrompt(req models.ChatRequest) string {
	if req.Context != "" {
		return req.Context
	}
	return defaultSystemPrompt
}

func (s *ChatService) resolveSession(ctx context.Context, userID uuid.UUID, req models.ChatRequest) (*models.ChatSession, error) {
	if req.SessionID == nil {
		title := req.Message
		if len(title) > 80 {
			title = title[:80]
		}
		session := &models.ChatSession{
			UserID: userID,
			Title:  &title,
			Model:  s.llmClient.DefaultModel(),
		}
		if err := s.chatRepo.CreateSession(ctx, session); err != nil {
			return nil, err
		}
		return session, nil
	}

	session, err := s.chatRepo.GetSession(ctx, *req.SessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Chat session not found"}
		}
		return nil, err
	}
	if session.UserID != userID {
		return nil, &ForbiddenError{Message: "You do not have access to this chat session"}
	}
	return session, nil
}

func (s *ChatService) loadHistory(ctx context.Context, sessionID uuid.UUID) ([]llm.Message, error) {
	stored, err := s.chatRepo.LastMessages(ctx, sessionID, historyWindow)
	if err != nil {
		return nil, err
	}
	history := make([]llm.Message, len(stored))
	for i, m := range stored {
		history[i] = llm.Message{Role: m.Role, Content: m.Content}
	}
	return history, nil
}

func (s *ChatService) ListSessions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.ChatSession, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.chatRepo.ListSessions(ctx, userID, limit, offset)
}

func (s *ChatService) GetHistory(ctx context.Context, userID, sessionID uuid.UUID, limit, offset int) (*models.MessageHistory, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	if _, err := s.ownedSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	messages, err := s.chatRepo.ListMessages(ctx, sessionID, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := s.chatRepo.CountMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return &models.MessageHistory{
		SessionID: sessionID,
		Messages:  messages,
		Total:     total,
		Limit:     limit,
		Offset:    offset,
	}, nil
}

// ClearHistory deletes a session's messages, keeping the session itself.
func (s *ChatService) ClearHistory(ctx context.Context, userID, sessionID uuid.UUID) error {
	if _, err := s.ownedSession(ctx, userID, sessionID); err != nil {
		return err
	}
	return s.chatRepo.ClearMessages(ctx, sessionID)
}

func (s *ChatService) DeleteSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	if _, err := s.ownedSession(ctx, userID, sessionID); err != nil {
		return err
	}
	return s.chatRepo.DeleteSession(ctx, sessionID)
}

func (s *ChatService) ownedSession(ctx context.Context, userID, sessionID uuid.UUID) (*models.ChatSession, error) {
	session, err := s.chatRepo.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Chat session not found"}
		}
		return nil, err
	}
	if session.UserID != userID {
		return nil, &ForbiddenError{Message: "You do not have access to this chat session"}
	}
	return session, nil
}

func mapLLMError(err error) error {
	if errors.Is(err, llm.ErrCircuitOpen) {
		return &ServiceUnavailableError{Message: "Model provider is temporarily unavailable. Please retry shortly."}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return &LLMError{Message: "Model provider request failed", Err: err}
}

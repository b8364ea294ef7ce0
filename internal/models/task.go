package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Task types handled by the worker pool.
const (
	TaskCompletionGeneration = "completion-generation"
	TaskChatProcessing       = "chat-processing"
	TaskSessionCleanup       = "session-cleanup"
	TaskNotification         = "notification"
)

// Task statuses.
const (
	TaskStatusPending    = "pending"
	TaskStatusProcessing = "processing"
	TaskStatusCompleted  = "completed"
	TaskStatusFailed     = "failed"
	TaskStatusCancelled  = "cancelled"
)

// Queue names BLPOP'd by the worker pool, in priority order.
const (
	QueueLLM     = "queue:llm"
	QueueChat    = "queue:chat"
	QueueGeneral = "queue:general"
)

// QueueForType routes a task type to its Redis queue.
func QueueForType(taskType string) string {
	switch taskType {
	case TaskCompletionGeneration:
		return QueueLLM
	case TaskChatProcessing:
		return QueueChat
	default:
		return QueueGeneral
	}
}

type Task struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	Type         string          `json:"type"`
	Queue        string          `json:"queue"`
	PayloadJSON  json.RawMessage `json:"payload"`
	Status       string          `json:"status"`
	RetryCount   int             `json:"retry_count"`
	MaxRetries   int             `json:"max_retries"`
	ResultJSON   json.RawMessage `json:"result,omitempty"`
	ErrorMessage *string         `json:"error_message"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at"`
}

type TaskSubmitResponse struct {
	TaskID uuid.UUID `json:"task_id"`
	Status string    `json:"status"`
	Queue  string    `json:"queue"`
}

// WebSocket message types

type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type TaskStatusUpdate struct {
	TaskID uuid.UUID `json:"task_id"`
	Status string    `json:"status"`
	Step   string    `json:"step,omitempty"`
}

type TaskCompletedEvent struct {
	TaskID uuid.UUID       `json:"task_id"`
	Result json.RawMessage `json:"result,omitempty"`
}

type TaskErrorEvent struct {
	TaskID       uuid.UUID `json:"task_id"`
	ErrorCode    string    `json:"error_code"`
	ErrorMessage string    `json:"error_message"`
}

// API Error response

type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}

package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"praxis-backend/internal/events"
	"praxis-backend/internal/metrics"
	"praxis-backend/internal/models"
	"praxis-backend/internal/repository"
	"praxis-backend/internal/services"
)

// sessionRetention is how long idle chat sessions live before the cleanup
// task removes them, unless the task payload overrides it.
const sessionRetentionDays = 30

type Pool struct {
	redis       *redis.Client
	taskRepo    *repository.TaskRepo
	chatRepo    *repository.ChatRepo
	chat        *services.ChatService
	completions *services.CompletionService
	notifier    *events.Notifier
	workerCount int
	stopChan    chan struct{}
}

func NewPool(
	redisClient *redis.Client,
	taskRepo *repository.TaskRepo,
	chatRepo *repository.ChatRepo,
	chat *services.ChatService,
	completions *services.CompletionService,
	notifier *events.Notifier,
	workerCount int,
) *Pool {
	return &Pool{
		redis:       redisClient,
		taskRepo:    taskRepo,
		chatRepo:    chatRepo,
		chat:        chat,
		completions: completions,
		notifier:    notifier,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	queues := []string{
		models.QueueLLM,
		models.QueueChat,
		models.QueueGeneral,
	}

	for i := 0; i < p.workerCount; i++ {
		go p.worker(i, queues)
	}
	go p.observeQueueDepths(queues)

	log.Printf("Started %d worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int, queues []string) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, queues...).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		taskID, err := uuid.Parse(result[1])
		if err != nil {
			log.Printf("Worker %d: invalid task ID %q: %v", id, result[1], err)
			continue
		}

		task, err := p.taskRepo.GetByID(ctx, taskID)
		if err != nil {
			log.Printf("Worker %d: failed to load task %s: %v", id, taskID, err)
			continue
		}

		// Try to acquire lock
		lockKey := fmt.Sprintf("task_lock:%s", task.ID.String())
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue // Another worker has this task
		}

		if p.cancelled(ctx, task) {
			p.redis.Del(ctx, lockKey)
			continue
		}

		log.Printf("Worker %d: processing task %s (type: %s)", id, task.ID, task.Type)

		p.taskRepo.UpdateStatus(ctx, task.ID, models.TaskStatusProcessing)
		p.publishUpdate(ctx, task.UserID, models.WSMessage{
			Type: "status_update",
			Payload: models.TaskStatusUpdate{
				TaskID: task.ID,
				Status: models.TaskStatusProcessing,
			},
		})

		var processErr error
		switch task.Type {
		case models.TaskCompletionGeneration:
			processErr = p.processCompletion(ctx, task)
		case models.TaskChatProcessing:
			processErr = p.processChat(ctx, task)
		case models.TaskSessionCleanup:
			processErr = p.processSessionCleanup(ctx, task)
		case models.TaskNotification:
			processErr = p.processNotification(ctx, task)
		default:
			processErr = fmt.Errorf("unknown task type: %s", task.Type)
		}

		if processErr != nil {
			p.handleFailure(ctx, task, processErr)
		} else {
			p.handleSuccess(ctx, task)
		}

		// Release lock
		p.redis.Del(ctx, lockKey)
	}
}

// cancelled checks the Redis cancel flag and drops the task if set.
func (p *Pool) cancelled(ctx context.Context, task *models.Task) bool {
	if task.Status == models.TaskStatusCancelled {
		return true
	}
	exists, err := p.redis.Exists(ctx, "task_cancel:"+task.ID.String()).Result()
	if err != nil || exists == 0 {
		return false
	}
	p.taskRepo.UpdateStatus(ctx, task.ID, models.TaskStatusCancelled)
	log.Printf("Task %s cancelled before processing", task.ID)
	return true
}

func (p *Pool) processCompletion(ctx context.Context, task *models.Task) error {
	var req models.CompletionRequest
	if err := json.Unmarshal(task.PayloadJSON, &req); err != nil {
		return fmt.Errorf("invalid completion payload: %w", err)
	}
	if req.Prompt == "" {
		return fmt.Errorf("completion payload has no prompt")
	}

	resp, err := p.completions.Create(ctx, task.UserID, req)
	if err != nil {
		return fmt.Errorf("completion generation failed: %w", err)
	}

	result, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal completion result: %w", err)
	}
	task.ResultJSON = result
	return p.taskRepo.UpdateResult(ctx, task.ID, result)
}

func (p *Pool) processChat(ctx context.Context, task *models.Task) error {
	var req models.ChatRequest
	if err := json.Unmarshal(task.PayloadJSON, &req); err != nil {
		return fmt.Errorf("invalid chat payload: %w", err)
	}

	resp, err := p.chat.SendMessage(ctx, task.UserID, req)
	if err != nil {
		return fmt.Errorf("chat processing failed: %w", err)
	}

	result, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal chat result: %w", err)
	}
	task.ResultJSON = result
	return p.taskRepo.UpdateResult(ctx, task.ID, result)
}

func (p *Pool) processSessionCleanup(ctx context.Context, task *models.Task) error {
	var payload struct {
		OlderThanDays int `json:"older_than_days"`
	}
	json.Unmarshal(task.PayloadJSON, &payload)
	if payload.OlderThanDays <= 0 {
		payload.OlderThanDays = sessionRetentionDays
	}

	cutoff := time.Now().AddDate(0, 0, -payload.OlderThanDays)
	deleted, err := p.chatRepo.DeleteSessionsOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("session cleanup failed: %w", err)
	}
	log.Printf("Session cleanup removed %d sessions older than %d days", deleted, payload.OlderThanDays)

	result, _ := json.Marshal(map[string]int64{"deleted_sessions": deleted})
	task.ResultJSON = result
	return p.taskRepo.UpdateResult(ctx, task.ID, result)
}

func (p *Pool) processNotification(ctx context.Context, task *models.Task) error {
	var payload struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := json.Unmarshal(task.PayloadJSON, &payload); err != nil {
		return fmt.Errorf("invalid notification payload: %w", err)
	}
	if payload.Subject == "" {
		return fmt.Errorf("notification payload has no subject")
	}

	err := p.notifier.Publish(ctx, events.Notification{
		UserID:  task.UserID.String(),
		Subject: payload.Subject,
		Body:    payload.Body,
		SentAt:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("notification publish failed: %w", err)
	}
	return nil
}

func (p *Pool) handleSuccess(ctx context.Context, task *models.Task) {
	p.taskRepo.UpdateStatus(ctx, task.ID, models.TaskStatusCompleted)
	metrics.TasksProcessedTotal.WithLabelValues(task.Type, "success").Inc()

	p.publishUpdate(ctx, task.UserID, models.WSMessage{
		Type: "completed",
		Payload: models.TaskCompletedEvent{
			TaskID: task.ID,
			Result: task.ResultJSON,
		},
	})

	log.Printf("Task %s completed successfully", task.ID)
}

func (p *Pool) handleFailure(ctx context.Context, task *models.Task, err error) {
	task.RetryCount++
	errMsg := err.Error()

	if task.RetryCount < task.MaxRetries {
		// Re-queue with backoff
		log.Printf("Task %s failed (attempt %d): %s, retrying", task.ID, task.RetryCount, errMsg)
		p.taskRepo.UpdateStatus(ctx, task.ID, models.TaskStatusPending)
		p.taskRepo.UpdateError(ctx, task.ID, errMsg, task.RetryCount)
		metrics.TasksProcessedTotal.WithLabelValues(task.Type, "retry").Inc()

		taskID := task.ID.String()
		queue := task.Queue
		backoff := time.Duration(1<<uint(task.RetryCount)) * time.Second
		time.AfterFunc(backoff, func() {
			p.redis.LPush(context.Background(), queue, taskID)
		})
		return
	}

	// Max retries reached
	log.Printf("Task %s failed permanently: %s", task.ID, errMsg)
	p.taskRepo.UpdateStatus(ctx, task.ID, models.TaskStatusFailed)
	p.taskRepo.UpdateError(ctx, task.ID, errMsg, task.RetryCount)
	metrics.TasksProcessedTotal.WithLabelValues(task.Type, "failure").Inc()

	p.publishUpdate(ctx, task.UserID, models.WSMessage{
		Type: "error",
		Payload: models.TaskErrorEvent{
			TaskID:       task.ID,
			ErrorCode:    "TASK_FAILED",
			ErrorMessage: errMsg,
		},
	})
}

// publishUpdate pushes a websocket message through Redis pub/sub so the
// instance holding the user's connection delivers it.
func (p *Pool) publishUpdate(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := p.redis.Publish(ctx, "user_updates:"+userID.String(), data).Err(); err != nil {
		log.Printf("failed to publish update for user %s: %v", userID, err)
	}
}

func (p *Pool) observeQueueDepths(queues []string) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopChan:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			for _, queue := range queues {
				if n, err := p.redis.LLen(ctx, queue).Result(); err == nil {
					metrics.QueueDepth.WithLabelValues(queue).Set(float64(n))
				}
			}
			cancel()
		}
	}
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"praxis-backend/internal/models"
	"praxis-backend/internal/repository"
)

var validTaskTypes = map[string]bool{
	models.TaskCompletionGeneration: true,
	models.TaskChatProcessing:       true,
	models.TaskSessionCleanup:       true,
	models.TaskNotification:         true,
}

type TaskService struct {
	taskRepo *repository.TaskRepo
	redis    *redis.Client
}

func NewTaskService(taskRepo *repository.TaskRepo, redisClient *redis.Client) *TaskService {
	return &TaskService{taskRepo: taskRepo, redis: redisClient}
}

// Submit records the task and pushes its ID onto the routed queue.
func (s *TaskService) Submit(ctx context.Context, userID uuid.UUID, taskType string, payload json.RawMessage) (*models.TaskSubmitResponse, error) {
	if !validTaskTypes[taskType] {
		return nil, &ValidationError{Fields: map[string]string{
			"type": fmt.Sprintf("Unknown task type %q", taskType),
		}}
	}

	task := &models.Task{
		UserID:      userID,
		Type:        taskType,
		Queue:       models.QueueForType(taskType),
		PayloadJSON: payload,
	}
	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, err
	}

	if err := s.redis.LPush(ctx, task.Queue, task.ID.String()).Err(); err != nil {
		s.taskRepo.UpdateStatus(ctx, task.ID, models.TaskStatusFailed)
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &models.TaskSubmitResponse{
		TaskID: task.ID,
		Status: task.Status,
		Queue:  task.Queue,
	}, nil
}

func (s *TaskService) Get(ctx context.Context, userID, taskID uuid.UUID) (*models.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Task not found"}
		}
		return nil, err
	}
	if task.UserID != userID {
		return nil, &ForbiddenError{Message: "You do not have access to this task"}
	}
	return task, nil
}

// Cancel marks a task cancelled. A running task observes the cancel flag in
// Redis between steps; a pending one is skipped when the worker picks it up.
func (s *TaskService) Cancel(ctx context.Context, userID, taskID uuid.UUID) (*models.Task, error) {
	task, err := s.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	switch task.Status {
	case models.TaskStatusCompleted, models.TaskStatusFailed, models.TaskStatusCancelled:
		return nil, &ConflictError{Message: "Task has already finished"}
	}

	if err := s.redis.Set(ctx, "task_cancel:"+taskID.String(), "1", time.Hour).Err(); err != nil {
		return nil, fmt.Errorf("failed to set cancel flag: %w", err)
	}
	if err := s.taskRepo.UpdateStatus(ctx, taskID, models.TaskStatusCancelled); err != nil {
		return nil, err
	}

	task.Status = models.TaskStatusCancelled
	return task, nil
}

// QueueDepths reports pending items per queue, for health and metrics.
func (s *TaskService) QueueDepths(ctx context.Context) (map[string]int64, error) {
	depths := make(map[string]int64, 3)
	for _, queue := range []string{models.QueueLLM, models.QueueChat, models.QueueGeneral} {
		n, err := s.redis.LLen(ctx, queue).Result()
		if err != nil {
			return nil, err
		}
		depths[queue] = n
	}
	return depths, nil
}

package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"praxis-backend/internal/models"
)

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

func (r *TaskRepo) Create(ctx context.Context, t *models.Task) error {
	t.ID = uuid.New()
	t.Status = models.TaskStatusPending
	t.RetryCount = 0
	t.MaxRetries = 3

	if len(t.PayloadJSON) == 0 {
		t.PayloadJSON = []byte("{}")
	}

	query := `INSERT INTO task_results (id, user_id, type, queue, payload_json, status, retry_count, max_retries)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		t.ID, t.UserID, t.Type, t.Queue, t.PayloadJSON, t.Status, t.RetryCount, t.MaxRetries,
	).Scan(&t.CreatedAt)
}

func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	t := &models.Task{}
	query := `SELECT id, user_id, type, queue, payload_json, status, retry_count, max_retries,
			result_json, error_message, created_at, completed_at
		FROM task_results WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.UserID, &t.Type, &t.Queue, &t.PayloadJSON, &t.Status,
		&t.RetryCount, &t.MaxRetries, &t.ResultJSON, &t.ErrorMessage, &t.CreatedAt, &t.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TaskRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	if status == models.TaskStatusCompleted || status == models.TaskStatusFailed || status == models.TaskStatusCancelled {
		_, err := r.pool.Exec(ctx,
			"UPDATE task_results SET status = $1, completed_at = $2 WHERE id = $3",
			status, time.Now(), id,
		)
		return err
	}
	_, err := r.pool.Exec(ctx, "UPDATE task_results SET status = $1 WHERE id = $2", status, id)
	return err
}

func (r *TaskRepo) UpdateResult(ctx context.Context, id uuid.UUID, result json.RawMessage) error {
	_, err := r.pool.Exec(ctx, "UPDATE task_results SET result_json = $1 WHERE id = $2", result, id)
	return err
}

func (r *TaskRepo) UpdateError(ctx context.Context, id uuid.UUID, errMsg string, retryCount int) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE task_results SET error_message = $1, retry_count = $2 WHERE id = $3",
		errMsg, retryCount, id,
	)
	return err
}

func (r *TaskRepo) CountByStatus(ctx context.Context, status string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM task_results WHERE status = $1", status).Scan(&count)
	return count, err
}

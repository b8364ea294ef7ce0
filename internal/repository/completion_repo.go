package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"praxis-backend/internal/models"
)

type CompletionRepo struct {
	pool *pgxpool.Pool
}

func NewCompletionRepo(pool *pgxpool.Pool) *CompletionRepo {
	return &CompletionRepo{pool: pool}
}

func (r *CompletionRepo) Create(ctx context.Context, c *models.Completion) error {
	c.ID = uuid.New()

	query := `INSERT INTO completions (id, user_id, model, prompt, text, prompt_tokens, completion_tokens)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		c.ID, c.UserID, c.Model, c.Prompt, c.Text, c.PromptTokens, c.CompletionTokens,
	).Scan(&c.CreatedAt)
}

func (r *CompletionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Completion, error) {
	c := &models.Completion{}
	query := `SELECT id, user_id, model, prompt, text, prompt_tokens, completion_tokens, created_at
		FROM completions WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.UserID, &c.Model, &c.Prompt, &c.Text, &c.PromptTokens, &c.CompletionTokens, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CompletionRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Completion, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, model, prompt, text, prompt_tokens, completion_tokens, created_at
		FROM completions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	completions := make([]models.Completion, 0)
	for rows.Next() {
		var c models.Completion
		if err := rows.Scan(&c.ID, &c.UserID, &c.Model, &c.Prompt, &c.Text, &c.PromptTokens, &c.CompletionTokens, &c.CreatedAt); err != nil {
			return nil, err
		}
		completions = append(completions, c)
	}
	return completions, rows.Err()
}

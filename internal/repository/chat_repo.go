package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"praxis-backend/internal/models"
)

type ChatRepo struct {
	pool *pgxpool.Pool
}

func NewChatRepo(pool *pgxpool.Pool) *ChatRepo {
	return &ChatRepo{pool: pool}
}

func (r *ChatRepo) CreateSession(ctx context.Context, s *models.ChatSession) error {
	s.ID = uuid.New()
	if len(s.Metadata) == 0 {
		s.Metadata = []byte("{}")
	}

	query := `INSERT INTO chat_sessions (id, user_id, title, model, metadata_json)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		s.ID, s.UserID, s.Title, s.Model, s.Metadata,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
}

func (r *ChatRepo) GetSession(ctx context.Context, id uuid.UUID) (*models.ChatSession, error) {
	s := &models.ChatSession{}
	query := `SELECT id, user_id, title, model, metadata_json, created_at, updated_at
		FROM chat_sessions WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.UserID, &s.Title, &s.Model, &s.Metadata, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *ChatRepo) ListSessions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.ChatSession, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, title, model, metadata_json, created_at, updated_at
		FROM chat_sessions
		WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.ChatSession, 0)
	for rows.Next() {
		var s models.ChatSession
		if err := rows.Scan(&s.ID, &s.UserID, &s.Title, &s.Model, &s.Metadata, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *ChatRepo) TouchSession(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "UPDATE chat_sessions SET updated_at = $1 WHERE id = $2", time.Now(), id)
	return err
}

func (r *ChatRepo) UpdateSessionTitle(ctx context.Context, id uuid.UUID, title string) error {
	_, err := r.pool.Exec(ctx, "UPDATE chat_sessions SET title = $1, updated_at = NOW() WHERE id = $2", title, id)
	return err
}

func (r *ChatRepo) DeleteSession(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM chat_sessions WHERE id = $1", id)
	return err
}

func (r *ChatRepo) CreateMessage(ctx context.Context, m *models.ChatMessage) error {
	m.ID = uuid.New()
	if len(m.Metadata) == 0 {
		m.Metadata = []byte("{}")
	}

	query := `INSERT INTO chat_messages (id, session_id, role, content, token_count, metadata_json)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		m.ID, m.SessionID, m.Role, m.Content, m.TokenCount, m.Metadata,
	).Scan(&m.CreatedAt)
}

func (r *ChatRepo) ListMessages(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]models.ChatMessage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, session_id, role, content, token_count, metadata_json, created_at
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`, sessionID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.ChatMessage, 0)
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.TokenCount, &m.Metadata, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// LastMessages returns the most recent n messages in chronological order.
func (r *ChatRepo) LastMessages(ctx context.Context, sessionID uuid.UUID, n int) ([]models.ChatMessage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, session_id, role, content, token_count, metadata_json, created_at
		FROM (
			SELECT id, session_id, role, content, token_count, metadata_json, created_at
			FROM chat_messages
			WHERE session_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at
	`, sessionID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.ChatMessage, 0)
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.TokenCount, &m.Metadata, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// ClearMessages removes a session's messages but keeps the session row.
func (r *ChatRepo) ClearMessages(ctx context.Context, sessionID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM chat_messages WHERE session_id = $1", sessionID)
	return err
}

func (r *ChatRepo) CountMessages(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM chat_messages WHERE session_id = $1", sessionID).Scan(&count)
	return count, err
}

// DeleteSessionsOlderThan removes sessions whose last update is before the cutoff.
// Messages cascade. Returns the number of sessions removed.
func (r *ChatRepo) DeleteSessionsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM chat_sessions WHERE updated_at < $1", cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

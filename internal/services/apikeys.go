package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"praxis-backend/internal/middleware"
	"praxis-backend/internal/models"
	"praxis-backend/internal/repository"
)

type APIKeyService struct {
	repo *repository.APIKeyRepo
}

func NewAPIKeyService(repo *repository.APIKeyRepo) *APIKeyService {
	return &APIKeyService{repo: repo}
}

// Create issues a new API key. The plaintext key is returned once and only
// its hash is stored.
func (s *APIKeyService) Create(ctx context.Context, userID uuid.UUID, req models.CreateAPIKeyRequest) (*models.CreateAPIKeyResponse, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	plaintext := middleware.APIKeyPrefix + hex.EncodeToString(raw)

	key := &models.APIKey{
		UserID:  userID,
		Name:    req.Name,
		KeyHash: middleware.HashAPIKey(plaintext),
		Prefix:  plaintext[:12],
	}
	if err := s.repo.Create(ctx, key); err != nil {
		return nil, err
	}

	return &models.CreateAPIKeyResponse{
		ID:        key.ID,
		Name:      key.Name,
		Key:       plaintext,
		CreatedAt: key.CreatedAt,
	}, nil
}

func (s *APIKeyService) List(ctx context.Context, userID uuid.UUID) ([]models.APIKey, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *APIKeyService) Revoke(ctx context.Context, userID, keyID uuid.UUID) error {
	err := s.repo.Revoke(ctx, keyID, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return &NotFoundError{Message: "API key not found"}
	}
	return err
}

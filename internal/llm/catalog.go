package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	catalogCacheKey = "llm:model_catalog"
	catalogCacheTTL = time.Hour
)

// ModelInfo describes one model the provider serves.
type ModelInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ContextLength int    `json:"context_length"`
}

// Catalog resolves per-model context window sizes from the provider's
// /models endpoint. Results are cached in Redis for an hour and in process
// memory, so a provider outage degrades to the configured default instead
// of failing requests.
type Catalog struct {
	baseURL       string
	apiKey        string
	httpClient    *http.Client
	redis         *redis.Client
	defaultTokens int

	mu     sync.RWMutex
	models map[string]ModelInfo
}

func NewCatalog(baseURL, apiKey string, redisClient *redis.Client, defaultTokens int) *Catalog {
	return &Catalog{
		baseURL:       strings.TrimRight(baseURL, "/"),
		apiKey:        apiKey,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		redis:         redisClient,
		defaultTokens: defaultTokens,
		models:        make(map[string]ModelInfo),
	}
}

// ContextLength returns the context window size for model, falling back to
// the configured default when the model is unknown.
func (c *Catalog) ContextLength(ctx context.Context, model string) int {
	c.mu.RLock()
	info, ok := c.models[model]
	c.mu.RUnlock()
	if ok && info.ContextLength > 0 {
		return info.ContextLength
	}

	if err := c.refresh(ctx); err != nil {
		log.Printf("model catalog refresh failed: %v", err)
		return c.defaultTokens
	}

	c.mu.RLock()
	info, ok = c.models[model]
	c.mu.RUnlock()
	if ok && info.ContextLength > 0 {
		return info.ContextLength
	}
	return c.defaultTokens
}

// Models returns the known model list, refreshing if empty.
func (c *Catalog) Models(ctx context.Context) []ModelInfo {
	c.mu.RLock()
	n := len(c.models)
	c.mu.RUnlock()

	if n == 0 {
		if err := c.refresh(ctx); err != nil {
			log.Printf("model catalog refresh failed: %v", err)
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ModelInfo, 0, len(c.models))
	for _, info := range c.models {
		out = append(out, info)
	}
	return out
}

func (c *Catalog) refresh(ctx context.Context) error {
	// Redis first, so restarts and other instances share one fetch per hour.
	if c.redis != nil {
		cached, err := c.redis.Get(ctx, catalogCacheKey).Result()
		if err == nil {
			var models []ModelInfo
			if err := json.Unmarshal([]byte(cached), &models); err == nil && len(models) > 0 {
				c.store(models)
				return nil
			}
		}
	}

	models, err := c.fetch(ctx)
	if err != nil {
		return err
	}
	c.store(models)

	if c.redis != nil {
		if data, err := json.Marshal(models); err == nil {
			if err := c.redis.Set(ctx, catalogCacheKey, data, catalogCacheTTL).Err(); err != nil {
				log.Printf("failed to cache model catalog: %v", err)
			}
		}
	}
	return nil
}

func (c *Catalog) fetch(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch model catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch model catalog: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Data []ModelInfo `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode model catalog: %w", err)
	}
	return payload.Data, nil
}

func (c *Catalog) store(models []ModelInfo) {
	byID := make(map[string]ModelInfo, len(models))
	for _, m := range models {
		byID[m.ID] = m
	}
	c.mu.Lock()
	c.models = byID
	c.mu.Unlock()
}

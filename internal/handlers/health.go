package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"praxis-backend/internal/events"
	"praxis-backend/internal/llm"
)

type HealthHandler struct {
	pool      *pgxpool.Pool
	redis     *redis.Client
	publisher *events.ChatEventPublisher
	notifier  *events.Notifier
	llmClient *llm.Client
}

func NewHealthHandler(
	pool *pgxpool.Pool,
	redisClient *redis.Client,
	publisher *events.ChatEventPublisher,
	notifier *events.Notifier,
	llmClient *llm.Client,
) *HealthHandler {
	return &HealthHandler{
		pool:      pool,
		redis:     redisClient,
		publisher: publisher,
		notifier:  notifier,
		llmClient: llmClient,
	}
}

// Live reports process liveness only.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// Ready reports whether required dependencies (Postgres, Redis) respond. The
// brokers are included in the report but never gate readiness.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{
		"database": "ok",
		"redis":    "ok",
	}
	ready := true

	if err := h.pool.Ping(ctx); err != nil {
		checks["database"] = err.Error()
		ready = false
	}
	if err := h.redis.Ping(ctx).Err(); err != nil {
		checks["redis"] = err.Error()
		ready = false
	}
	h.brokerChecks(ctx, checks)

	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "not_ready"
	}
	writeJSON(w, status, map[string]interface{}{"status": state, "checks": checks})
}

// brokerChecks records the state of the optional brokers. An unconfigured
// broker reports "disabled"; a failing one reports its error.
func (h *HealthHandler) brokerChecks(ctx context.Context, checks map[string]string) {
	if h.publisher == nil {
		checks["kafka"] = "disabled"
	} else if err := h.publisher.Healthy(ctx); err != nil {
		checks["kafka"] = err.Error()
	} else {
		checks["kafka"] = "ok"
	}

	if h.notifier == nil {
		checks["rabbitmq"] = "disabled"
	} else if err := h.notifier.Healthy(ctx); err != nil {
		checks["rabbitmq"] = err.Error()
	} else {
		checks["rabbitmq"] = "ok"
	}
}

// Health reports every dependency, including the optional brokers. Optional
// services degrade the report but never flip the status code: only Postgres
// and Redis gate availability.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	ready := true

	if err := h.pool.Ping(ctx); err != nil {
		checks["database"] = err.Error()
		ready = false
	} else {
		checks["database"] = "ok"
	}

	if err := h.redis.Ping(ctx).Err(); err != nil {
		checks["redis"] = err.Error()
		ready = false
	} else {
		checks["redis"] = "ok"
	}

	h.brokerChecks(ctx, checks)

	checks["llm_circuit_breaker"] = h.llmClient.Breaker().State()

	status := http.StatusOK
	state := "healthy"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "unhealthy"
	}
	writeJSON(w, status, map[string]interface{}{"status": state, "checks": checks})
}

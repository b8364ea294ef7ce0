package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"praxis-backend/internal/handlers"
	"praxis-backend/internal/middleware"
	"praxis-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	apiLimiter *middleware.RedisRateLimiter,
	authHandler *handlers.AuthHandler,
	chatHandler *handlers.ChatHandler,
	completionHandler *handlers.CompletionHandler,
	taskHandler *handlers.TaskHandler,
	apiKeyHandler *handlers.APIKeyHandler,
	healthHandler *handlers.HealthHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))
	r.Use(middleware.Metrics)

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Health and metrics (public, unthrottled)
	r.Get("/health", healthHandler.Health)
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)

			// Logout and profile require auth
			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", authHandler.Logout)
				r.Get("/me", authHandler.Me)
			})
		})

		// ──── Chat Routes ────
		r.Route("/chat", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(apiLimiter.Middleware)
			r.Post("/", chatHandler.SendMessage)
			r.Get("/sessions", chatHandler.ListSessions)
			r.Get("/sessions/{sessionID}/history", chatHandler.GetHistory)
			r.Delete("/sessions/{sessionID}/history", chatHandler.ClearHistory)
			r.Delete("/sessions/{sessionID}", chatHandler.DeleteSession)
		})

		// ──── Completion Routes ────
		r.Route("/completions", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(apiLimiter.Middleware)
			r.Post("/", completionHandler.Create)
			r.Post("/stream", completionHandler.Stream)
			r.Get("/", completionHandler.List)
		})

		// ──── Task Routes ────
		r.Route("/tasks", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(apiLimiter.Middleware)
			r.Post("/", taskHandler.Submit)
			r.Get("/{taskID}", taskHandler.Get)
			r.Delete("/{taskID}", taskHandler.Cancel)
		})

		// ──── API Key Routes ────
		r.Route("/api-keys", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", apiKeyHandler.Create)
			r.Get("/", apiKeyHandler.List)
			r.Delete("/{keyID}", apiKeyHandler.Revoke)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}

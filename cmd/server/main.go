package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"praxis-backend/internal/config"
	"praxis-backend/internal/contextmgr"
	"praxis-backend/internal/database"
	"praxis-backend/internal/events"
	"praxis-backend/internal/handlers"
	"praxis-backend/internal/llm"
	"praxis-backend/internal/metrics"
	"praxis-backend/internal/middleware"
	"praxis-backend/internal/repository"
	"praxis-backend/internal/router"
	"praxis-backend/internal/services"
	"praxis-backend/internal/tokens"
	"praxis-backend/internal/websocket"
	"praxis-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting Praxis Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL, cfg.RedisPoolSize)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	chatRepo := repository.NewChatRepo(pool)
	completionRepo := repository.NewCompletionRepo(pool)
	taskRepo := repository.NewTaskRepo(pool)
	apiKeyRepo := repository.NewAPIKeyRepo(pool)

	// ──── Step 5: Initialize Model Provider Client ────
	llmClient := llm.NewClient(cfg.OpenRouterAPIKey, cfg.OpenRouterBaseURL, cfg.LLMModel, cfg.LLMConcurrentReqs)
	llmClient.Breaker().OnStateChange(metrics.SetBreakerState)
	catalog := llm.NewCatalog(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, redisClients.Queue, cfg.DefaultContextTokens)
	log.Println("✓ Model provider client initialized")

	// ──── Initialize Services ────
	counter := tokens.NewCounter()
	ctxMgr := contextmgr.NewManager(counter, llmClient, catalog, cfg.ContextBufferTokens)
	publisher := events.NewChatEventPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	notifier := events.NewNotifier(cfg.RabbitMQURL, cfg.RabbitMQQueue)

	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret, apiKeyRepo)
	authService := services.NewAuthService(userRepo, redisClients.Queue, jwtAuth)
	chatService := services.NewChatService(chatRepo, llmClient, ctxMgr, counter, publisher, cfg.MaxMessageChars)
	completionService := services.NewCompletionService(completionRepo, llmClient, counter)
	taskService := services.NewTaskService(taskRepo, redisClients.Queue)
	apiKeyService := services.NewAPIKeyService(apiKeyRepo)

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	chatHandler := handlers.NewChatHandler(chatService)
	completionHandler := handlers.NewCompletionHandler(completionService)
	taskHandler := handlers.NewTaskHandler(taskService)
	apiKeyHandler := handlers.NewAPIKeyHandler(apiKeyService)
	healthHandler := handlers.NewHealthHandler(pool, redisClients.Queue, publisher, notifier, llmClient)

	// ──── Step 6: Start Task Worker Pool ────
	workerPool := worker.NewPool(
		redisClients.Queue,
		taskRepo,
		chatRepo,
		chatService,
		completionService,
		notifier,
		cfg.WorkerCount,
	)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.WorkerCount)

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, cfg.JWTSecret)
	log.Println("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	apiLimiter := middleware.NewRedisRateLimiter(redisClients.Queue, cfg.RateLimitPerMinute, time.Minute)

	r := router.New(
		jwtAuth,
		apiLimiter,
		authHandler,
		chatHandler,
		completionHandler,
		taskHandler,
		apiKeyHandler,
		healthHandler,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// Long write timeout: streamed completions can run for minutes.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()
		publisher.Close()
		notifier.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Praxis Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"mcq-mastery-backend/internal/app"
	"mcq-mastery-backend/internal/config"
	"mcq-mastery-backend/internal/database"
	"mcq-mastery-backend/internal/handlers"
	"mcq-mastery-backend/internal/middleware"
	"mcq-mastery-backend/internal/repository"
	"mcq-mastery-backend/internal/router"
	"mcq-mastery-backend/internal/services"
	"mcq-mastery-backend/internal/websocket"
	"mcq-mastery-backend/internal/worker"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	setupLogger(cfg)
	log.Info().Str("env", cfg.Env).Msg("Starting MCQ Mastery backend")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// ──── Step 2: Initialize Redis Clients (optional) ────
	var redisClients *database.RedisClients
	if cfg.RedisURL != "" {
		var err error
		redisClients, err = database.NewRedisClients(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Redis connection failed")
		}
		defer redisClients.Close()
		log.Info().Msg("Redis connected")
	}

	// ──── Step 3: Open Key-Value Store ────
	store, closeStore, err := openStore(ctx, cfg, redisClients)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("Store initialization failed")
	}
	defer closeStore()
	log.Info().Str("driver", cfg.StoreDriver).Msg("Store ready")

	// ──── Step 4: Load Repositories ────
	questionRepo := repository.NewQuestionRepo(store)
	attemptRepo := repository.NewAttemptRepo(store)
	jobRepo := repository.NewJobRepo()
	if err := questionRepo.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to load question bank")
	}
	if err := attemptRepo.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to load attempt history")
	}
	log.Info().Int("questions", questionRepo.Count()).Int("attempts", len(attemptRepo.List())).Msg("Repositories loaded")

	controller := app.NewController(questionRepo, attemptRepo)

	// ──── Step 5: Initialize Gemini Client ────
	fileExtractService := services.NewFileExtractService()
	geminiService, err := services.NewGeminiService(
		cfg.GeminiAPIKey,
		cfg.GeminiModel,
		cfg.GeminiFastModel,
		cfg.GeminiConcurrentReqs,
		fileExtractService,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Gemini client initialization failed")
	}
	defer geminiService.Close()
	log.Info().Str("model", cfg.GeminiModel).Str("fast_model", cfg.GeminiFastModel).Msg("Gemini client initialized")

	// ──── Step 6: Start WebSocket Hub ────
	var pubsub *redis.Client
	if redisClients != nil {
		pubsub = redisClients.PubSub
	}
	wsHub := websocket.NewHub(pubsub)
	go wsHub.Run(ctx)
	log.Info().Bool("redis_fanout", pubsub != nil).Msg("WebSocket hub started")

	researchService := services.NewResearchService(geminiService, questionRepo.GetByID, wsHub, cfg.AITimeout)

	// ──── Step 7: Start Extraction Worker Pool ────
	var queue worker.Queue
	if redisClients != nil {
		queue = worker.NewRedisQueue(redisClients.Queue)
	} else {
		queue = worker.NewMemoryQueue(64)
	}
	workerPool := worker.NewPool(queue, geminiService, jobRepo, wsHub, cfg.WorkerCount, cfg.AITimeout)
	workerPool.Start()

	// ──── Step 8: Start HTTP Server ────
	aiLimiter := middleware.NewRateLimiter(30, time.Minute)
	defer aiLimiter.Stop()

	r := router.New(router.Handlers{
		State:      handlers.NewStateHandler(controller),
		Dashboard:  handlers.NewDashboardHandler(controller),
		Question:   handlers.NewQuestionHandler(controller, researchService),
		Quiz:       handlers.NewQuizHandler(controller, cfg.DefaultQuizN),
		Attempt:    handlers.NewAttemptHandler(controller),
		Research:   handlers.NewResearchHandler(researchService, geminiService),
		Extraction: handlers.NewExtractionHandler(controller, jobRepo, workerPool, cfg.MaxUploadBytes()),
	}, aiLimiter, wsHub, cfg.FrontendURL)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)

		workerPool.Stop()
		researchService.Wait()
		stop()
	}()

	log.Info().Msgf("MCQ Mastery backend ready on http://localhost:%s", cfg.Port)
	log.Info().Msgf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Info().Msgf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("Server error")
	}
	<-ctx.Done()
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
}

// openStore picks the KeyValueStore driver. The returned close func is always safe to call.
func openStore(ctx context.Context, cfg *config.Config, redisClients *database.RedisClients) (database.KeyValueStore, func(), error) {
	switch cfg.StoreDriver {
	case "postgres":
		pool, err := database.NewPostgresPool(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := database.RunMigrations(pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return database.NewPostgresStore(pool), pool.Close, nil

	case "redis":
		if redisClients == nil {
			return nil, nil, fmt.Errorf("redis store requires REDIS_URL")
		}
		return database.NewRedisStore(redisClients.Queue), func() {}, nil

	case "memory":
		log.Warn().Msg("Using in-memory store, data is lost on restart")
		return database.NewMemoryStore(), func() {}, nil

	default:
		s, err := database.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	}
}

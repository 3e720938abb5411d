package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/quizbeat/api/internal/client"
	"github.com/quizbeat/api/internal/config"
	"github.com/quizbeat/api/internal/handler"
	"github.com/quizbeat/api/internal/middleware"
	"github.com/quizbeat/api/internal/service"
	"github.com/quizbeat/api/internal/store"
	"github.com/quizbeat/api/internal/worker"
	ws "github.com/quizbeat/api/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()

	// External clients
	discogsClient := client.NewDiscogsClient(&cfg.Catalog)
	spotifyClient := client.NewSpotifyClient(&cfg.Streaming)

	// Initialize services
	jobStore := store.NewJobStore(redisClient, cfg.Quiz.JobTTL)
	resolver := service.NewResolver(discogsClient)
	playlistService := service.NewPlaylistService(spotifyClient, cfg.Quiz.SampleSize)
	quizService := service.NewQuizService(resolver, jobStore, asynqClient, hub)

	// Initialize handlers
	quizHandler := handler.NewQuizHandler(quizService, validate)
	workerHandler := handler.NewWorkerHandler(quizService, validate)
	playlistHandler := handler.NewPlaylistHandler(playlistService)
	streamHandler := handler.NewStreamHandler(jobStore, &cfg.Stream)

	// Initialize middleware
	signatureMiddleware := middleware.NewSignatureMiddleware(cfg.Queue.Token)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Routes
	app.Get("/playlist", playlistHandler.Sample)
	app.Post("/process", rateLimiter.ProcessLimit(cfg.RateLimit.ProcessPerMin), quizHandler.Process)
	app.Post("/worker", signatureMiddleware.Verify(), workerHandler.Handle)
	app.Get("/stream", streamHandler.Stream)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, jobID)
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, quizService)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(cfg *config.Config, quizService *service.QuizService) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			// Jobs run concurrently across workers, but each job's
			// songs are sequential: the catalog allows 1 rps.
			Concurrency: 4,
			Queues: map[string]int{
				service.QueueQuiz: 1,
			},
		},
	)

	quizWorker := worker.NewQuizWorker(quizService)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeQuiz, quizWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}

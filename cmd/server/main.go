package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"core/internal/cache"
	"core/internal/config"
	"core/internal/consistency"
	"core/internal/handler"
	"core/internal/parser"
	"core/internal/repository"
	"core/internal/service"
	"core/internal/session"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg.Logging)

	logrus.Infof("Product Search Engine")
	logrus.Infof("Version: %s", Version)
	logrus.Infof("Build Time: %s", BuildTime)
	logrus.Infof("Git Commit: %s", GitCommit)

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	// Initialize database connection
	repo, err := repository.NewPostgresRepository(
		cfg.GetPostgreSQLDSN(),
		cfg.PostgreSQL.MaxConnections,
		cfg.PostgreSQL.MaxIdleConnections,
	)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer repo.Close()

	logrus.Info("✅ Connected to PostgreSQL database")

	// Session context and result cache: Redis when configured,
	// in-process otherwise.
	sessionTTL := time.Duration(cfg.Session.TTLSeconds) * time.Second
	cacheTTL := time.Duration(cfg.Cache.TTLSeconds) * time.Second

	var sessions session.Store
	var transcripts session.TranscriptStore
	var resultCache cache.ResultCache
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			logrus.Fatalf("Failed to connect to Redis at %s: %v", cfg.Redis.Addr, err)
		}
		cancel()
		sessions = session.NewRedisStore(redisClient, sessionTTL)
		transcripts = session.NewRedisTranscript(redisClient, sessionTTL, cfg.Session.MaxMessages)
		resultCache = cache.NewRedisCache(redisClient, cacheTTL)
		logrus.Infof("✅ Connected to Redis at %s", cfg.Redis.Addr)
	} else {
		sessions = session.NewMemoryStore(sessionTTL)
		transcripts = session.NewMemoryTranscript(cfg.Session.MaxMessages)
		resultCache = cache.NewMemoryCache(cacheTTL, cfg.Cache.MaxEntries)
		logrus.Info("⚠️  Redis not configured, sessions and cache are in-process only")
	}

	// Initialize OpenAI client
	var aiClient service.AIClient
	if cfg.OpenAI.Enabled {
		aiClient = service.NewOpenAIClient(&cfg.OpenAI)
		logrus.Info("✅ OpenAI client initialized")
		logrus.Infof("   - API Base: %s", cfg.OpenAI.APIBase)
		logrus.Infof("   - Chat model: %s", cfg.OpenAI.ChatModel)
		logrus.Infof("   - Embedding model: %s", cfg.OpenAI.EmbeddingModel)
	} else {
		logrus.Info("⚠️  OpenAI is disabled - searches run on deterministic extraction only")
		logrus.Info("   Set OPENAI_API_KEY environment variable to enable model proposals")
	}

	// Initialize services
	queryParser := parser.New(cfg.Parser.AroundMargin)
	proposer := service.NewProposer(aiClient)
	monitor := consistency.New(cfg.Monitor.MaxLogSize, cfg.Monitor.VarianceThreshold)
	searchService := service.NewSearchService(
		repo,
		queryParser,
		proposer,
		aiClient,
		sessions,
		transcripts,
		resultCache,
		monitor,
		cfg.Search.MaxLimit,
	)

	logrus.Info("✅ Services initialized")

	// Initialize handlers
	searchHandler := handler.NewSearchHandler(searchService, cfg.Search.DefaultLimit, cfg.Search.MaxLimit)
	sessionHandler := handler.NewSessionHandler(sessions, transcripts, cfg.Session.MaxMessages)
	embeddingHandler := handler.NewEmbeddingHandler(searchService, cfg.OpenAI.EmbeddingDimensions)
	debugHandler := handler.NewDebugHandler(searchService)

	// Setup Gin router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.AllowedOrigins}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":     "healthy",
			"service":    "product-search-engine",
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	// Version endpoint
	router.GET("/version", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	// API routes
	apiV1 := router.Group("/api/v1")
	{
		// Search endpoints
		apiV1.POST("/search", searchHandler.Search)
		apiV1.GET("/products/:asin", searchHandler.GetProduct)

		// Session endpoints
		apiV1.GET("/sessions/:id/history", sessionHandler.History)
		apiV1.DELETE("/sessions/:id", sessionHandler.Clear)

		// Embedding endpoints
		apiV1.POST("/embeddings/batch", embeddingHandler.BatchUpdate)

		// Debug endpoints
		apiV1.GET("/debug/parse-query", debugHandler.ParseQuery)
		apiV1.GET("/debug/consistency-report", debugHandler.ConsistencyReport)
		apiV1.GET("/debug/query-history/:query", debugHandler.QueryHistory)
		apiV1.GET("/debug/test-consistency", debugHandler.TestConsistency)
		apiV1.GET("/debug/consistency-log", debugHandler.ExportLog)
		apiV1.DELETE("/debug/consistency-log", debugHandler.ClearLog)
	}

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logrus.Infof("🚀 Starting server on %s", addr)
	logrus.Infof("📝 API root: http://localhost:%d/api/v1", cfg.Server.Port)

	// Graceful shutdown
	go func() {
		if err := router.Run(addr); err != nil {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("🛑 Shutting down server...")
	logrus.Info("✅ Server stopped")
}

func setupLogging(cfg config.LoggingConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

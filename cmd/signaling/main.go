package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/peerdrop/signaling/config"
	"github.com/peerdrop/signaling/internal/filestore"
	"github.com/peerdrop/signaling/internal/handlers"
	"github.com/peerdrop/signaling/internal/middleware"
	"github.com/peerdrop/signaling/internal/presence"
	"github.com/peerdrop/signaling/internal/signaling"
)

func main() {
	cfg := config.Load()

	logger, err := buildLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// Presence mirror
	tracker, err := presence.New(cfg.Redis, logger)
	if err != nil {
		logger.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer tracker.Close()
	logger.Info("Redis connection established")

	registry := signaling.NewRegistry(logger)

	files := filestore.New(cfg.FileTTL, logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go files.RunSweeper(ctx, cfg.SweepInterval)

	api := &handlers.API{
		Registry:  registry,
		Presence:  tracker,
		Files:     files,
		JWTSecret: cfg.JWTSecret,
		Log:       logger,
	}

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Global CORS middleware (runs before routing)
	router.Use(handlers.OriginFilter(cfg.AllowedOrigins))

	router.GET("/", api.Banner)
	router.GET("/health", api.Health)

	apiGroup := router.Group("/api")
	{
		// Login endpoint (public)
		apiGroup.POST("/auth/login", api.Login)

		// Identifier issuance and peer listing (public)
		apiGroup.GET("/generate-id", api.GenerateID)
		apiGroup.GET("/peers", api.ListPeers)

		// Force-disconnect a peer (requires JWT)
		apiGroup.DELETE("/peers/:peerId", middleware.JWTAuth(cfg.JWTSecret), api.DeregisterPeer)

		// Temporary file sharing
		apiGroup.POST("/files", api.UploadFile)
		apiGroup.GET("/files/:fileId", api.GetFile)
		apiGroup.POST("/generate-link", api.GenerateLink)
	}

	// WebSocket signaling endpoint
	wsGroup := router.Group("/ws")
	{
		wsGroup.GET("/:clientId", api.HandleSignaling)
	}

	logger.Info("starting signaling server", zap.String("port", cfg.Port))
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func buildLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

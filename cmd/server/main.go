package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"snaptext/internal/auth"
	"snaptext/internal/blob"
	"snaptext/internal/chat"
	"snaptext/internal/config"
	"snaptext/internal/handler"
	"snaptext/internal/inference"
	"snaptext/internal/middleware"
	"snaptext/internal/repository/postgres"
	syncclient "snaptext/internal/sync"

	"github.com/go-resty/resty/v2"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

const orphanSweepInterval = 24 * time.Hour

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	var logOut io.Writer = os.Stdout
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, 10)
		if err != nil {
			log.Fatalf("Failed to setup log file: %v", err)
		}
		defer logFile.Close()
		logOut = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
	)

	// Database
	ctx := context.Background()
	if err := postgres.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected")

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Logger: logger,
	}
	documentStore := postgres.NewDocumentStore(repoConfig)
	chatStore := postgres.NewChatStore(repoConfig)
	userStore := postgres.NewUserStore(repoConfig)

	// Blob storage
	blobStore, err := blob.NewDiskStore(cfg.BlobDir, cfg.PublicBaseURL, logger)
	if err != nil {
		log.Fatalf("Failed to create blob store: %v", err)
	}

	// Auth: locally issued tokens, optionally verified against an
	// external IdP's JWKS instead
	issuer, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL, logger)
	if err != nil {
		log.Fatalf("Failed to create token issuer: %v", err)
	}

	var verifier auth.TokenVerifier = issuer
	if cfg.AuthJWKSURL != "" {
		verifier, err = auth.NewJWKSVerifier(cfg.AuthJWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create JWKS verifier: %v", err)
		}
	}
	defer verifier.Close()

	authManager := auth.NewManager(userStore, issuer, logger)

	// Services
	inferenceClient := inference.NewClient(cfg.InferenceBaseURL, logger)
	syncClient := syncclient.NewClient(documentStore, chatStore, blobStore, resty.New(), logger)
	responder := chat.NewResponder(inferenceClient, syncClient, logger)

	grouper, err := chat.NewGrouper()
	if err != nil {
		log.Fatalf("Failed to load chat grouping config: %v", err)
	}

	// Handlers
	authHandler := handler.NewAuthHandler(authManager, logger)
	docHandler := handler.NewDocumentHandler(syncClient, logger)
	chatHandler := handler.NewChatHandler(syncClient, grouper, responder, logger)
	ocrHandler := handler.NewOCRHandler(inferenceClient, logger)

	logger.Info("services initialized")

	// Periodic reconciliation of blobs no record references anymore
	go func() {
		ticker := time.NewTicker(orphanSweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			if _, err := syncClient.SweepOrphans(ctx, orphanSweepInterval); err != nil {
				logger.Warn("orphan sweep failed", "error", err)
			}
		}
	}()

	// HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handler.HealthCheck)

	// Auth routes (public)
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/reset-password", authHandler.ResetPassword)
	mux.HandleFunc("POST /api/auth/reset-password/confirm", authHandler.ConfirmReset)
	mux.HandleFunc("GET /api/auth/session", authHandler.Session)

	// Account routes
	mux.HandleFunc("GET /api/me", authHandler.Me)
	mux.HandleFunc("POST /api/logout", authHandler.Logout)

	// Document routes
	mux.HandleFunc("POST /api/documents", docHandler.SaveDocument)
	mux.HandleFunc("GET /api/documents", docHandler.ListDocuments)
	mux.HandleFunc("PATCH /api/documents/{id}", docHandler.UpdateDocument)
	mux.HandleFunc("DELETE /api/documents/{id}", docHandler.DeleteDocument)

	// OCR proxy
	mux.HandleFunc("POST /api/ocr", ocrHandler.ExtractText)

	// Chat routes
	mux.HandleFunc("POST /api/chats", chatHandler.CreateChat)
	mux.HandleFunc("GET /api/chats", chatHandler.ListChats)
	mux.HandleFunc("GET /api/chats/{id}", chatHandler.GetChat)
	mux.HandleFunc("PATCH /api/chats/{id}", chatHandler.UpdateChat)
	mux.HandleFunc("DELETE /api/chats/{id}", chatHandler.DeleteChat)
	mux.HandleFunc("PUT /api/chats/{id}/messages", chatHandler.UpdateMessages)
	mux.HandleFunc("POST /api/messages", chatHandler.SendMessage)

	// Durable blob download URLs
	mux.Handle("GET /files/", http.StripPrefix("/files/",
		http.FileServer(http.Dir(blobStore.Root()))))

	// Middleware chain: CORS → Recovery → Auth → Routes
	var httpHandler http.Handler = mux
	httpHandler = middleware.Auth(verifier)(httpHandler)
	httpHandler = middleware.Recovery(logger)(httpHandler)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	httpHandler = corsHandler.Handler(httpHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // image generation calls are slow
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}

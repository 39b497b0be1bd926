package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	gsessions "github.com/gin-contrib/sessions/postgres"
	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"quizgenai/internal/api"
	"quizgenai/internal/api/handlers"
	"quizgenai/internal/auth"
	"quizgenai/internal/cache"
	"quizgenai/internal/config"
	"quizgenai/internal/db"
	"quizgenai/internal/events"
	"quizgenai/internal/extract"
	"quizgenai/internal/llm"
	"quizgenai/internal/logger"
	"quizgenai/internal/metrics"
	"quizgenai/internal/quizgen"
	"quizgenai/internal/r2"
	"quizgenai/internal/store"
)

const sessionName = "quizgenai_session"

func main() {
	configPath := flag.String("config", ".", "directory containing an optional config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// The logger depends on the config, so fall back to a bare one.
		zap.NewExample().Fatal("failed to load configuration", zap.Error(err))
	}

	log := logger.New(cfg)
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()

	// --- Language model ---
	completer, images, closeModel, err := newCompleter(ctx, cfg.LLM, log)
	if err != nil {
		log.Fatal("failed to initialize language model", zap.String("provider", cfg.LLM.Provider), zap.Error(err))
	}
	defer closeModel()

	client := llm.NewClient(completer,
		llm.WithMaxAttempts(cfg.LLM.MaxAttempts),
		llm.WithRetryDelay(cfg.LLM.RetryDelay),
		llm.WithLogger(log),
		llm.WithRetryObserver(m.ObserveRetry),
	)
	orchestrator := quizgen.NewOrchestrator(client,
		quizgen.WithChunkSize(cfg.Generation.ChunkSize),
		quizgen.WithChunkAttempts(cfg.Generation.ChunkAttempts),
		quizgen.WithLogger(log),
		quizgen.WithRecorder(m),
	)

	// --- Storage ---
	var st store.Store
	if cfg.Database.URL != "" {
		database, err := db.NewDB(ctx, cfg.Database.URL)
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}
		defer database.Close()
		if err := database.InitSchema(ctx); err != nil {
			log.Fatal("failed to initialize database schema", zap.Error(err))
		}
		st = database
		log.Info("using PostgreSQL store")
	} else {
		log.Warn("DATABASE_URL not set, using in-memory store; data is lost on restart")
		st = store.NewMemoryStore()
	}

	// --- Optional integrations ---
	generationCache, err := cache.NewGenerationCache(cfg.Redis, log)
	if err != nil {
		log.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer generationCache.Close()

	publisher, err := events.NewPublisher(cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal("failed to connect to RabbitMQ", zap.Error(err))
	}
	defer publisher.Close()

	archive, err := r2.NewClient(ctx, cfg.R2, log)
	if err != nil {
		log.Fatal("failed to initialize R2 client", zap.Error(err))
	}

	var oauthConfig *oauth2.Config
	if cfg.Auth.Google.Enabled() {
		oauthConfig = &oauth2.Config{
			RedirectURL:  cfg.Auth.Google.RedirectURL,
			ClientID:     cfg.Auth.Google.ClientID,
			ClientSecret: cfg.Auth.Google.ClientSecret,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		}
	} else {
		log.Warn("Google OAuth not configured (GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET, GOOGLE_REDIRECT_URL), Google login disabled")
	}

	// --- Router ---
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())

	sessionStore, closeSessions, err := newSessionStore(cfg)
	if err != nil {
		log.Fatal("failed to create session store", zap.Error(err))
	}
	defer closeSessions()
	router.Use(sessions.Sessions(sessionName, sessionStore))

	h := handlers.NewHandler(handlers.Dependencies{
		OauthConfig: oauthConfig,
		Store:       st,
		Generator:   orchestrator,
		Extractor:   extract.New(images, extract.NewYouTube(&http.Client{Timeout: 30 * time.Second}), log),
		Archive:     archive,
		Cache:       generationCache,
		Events:      publisher,
		Tokens:      auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		FrontendURL: cfg.Server.FrontendURL,
		Log:         log,
	})
	api.SetupRoutes(router, h, cfg, m, log)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Set up graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
		return
	}
	log.Info("server exited properly")
}

// newGeminiCompleter is swapped out in tests.
var newGeminiCompleter = llm.NewGeminiCompleter

// newCompleter builds the configured model backend. images is non-nil only
// for Gemini, which also reads text out of uploaded images.
func newCompleter(ctx context.Context, cfg config.LLMConfig, log *zap.Logger) (llm.Completer, extract.ImageReader, func(), error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		completer, err := llm.NewOpenAICompleter(llm.OpenAIConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		images, closeImages := visionReader(ctx, cfg, log)
		return completer, images, closeImages, nil
	default:
		completer, err := newGeminiCompleter(ctx, llm.GeminiConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   int32(cfg.MaxTokens),
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return completer, completer, func() { completer.Close() }, nil
	}
}

// visionReader returns a Gemini image reader when GEMINI_API_KEY is set
// alongside a non-Gemini text provider. Image uploads are disabled when the
// reader cannot be built.
func visionReader(ctx context.Context, cfg config.LLMConfig, log *zap.Logger) (extract.ImageReader, func()) {
	if cfg.VisionAPIKey == "" {
		return nil, func() {}
	}
	vision, err := newGeminiCompleter(ctx, llm.GeminiConfig{APIKey: cfg.VisionAPIKey})
	if err != nil {
		log.Warn("failed to initialize Gemini image reader, image uploads disabled", zap.Error(err))
		return nil, func() {}
	}
	return vision, func() { vision.Close() }
}

// newSessionStore keeps OAuth state in PostgreSQL when a database is
// configured and in signed cookies otherwise.
func newSessionStore(cfg *config.Config) (sessions.Store, func(), error) {
	secret := []byte(cfg.Auth.SessionSecret)
	if len(secret) == 0 {
		secret = []byte(cfg.Auth.JWTSecret)
	}
	options := sessions.Options{
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		Secure:   cfg.Server.Mode == gin.ReleaseMode,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	if cfg.Database.URL == "" {
		store := cookie.NewStore(secret)
		store.Options(options)
		return store, func() {}, nil
	}

	sessionDB, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	if err := sessionDB.Ping(); err != nil {
		sessionDB.Close()
		return nil, nil, err
	}
	store, err := gsessions.NewStore(sessionDB, secret)
	if err != nil {
		sessionDB.Close()
		return nil, nil, err
	}
	store.Options(options)
	return store, func() { sessionDB.Close() }, nil
}

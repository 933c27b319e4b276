package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/api/option"

	appconfig "github.com/fridayhq/friday/config"
	"github.com/fridayhq/friday/internal/assistant"
	"github.com/fridayhq/friday/internal/cache"
	"github.com/fridayhq/friday/internal/chunk"
	"github.com/fridayhq/friday/internal/convo"
	"github.com/fridayhq/friday/internal/embedding"
	"github.com/fridayhq/friday/internal/files"
	"github.com/fridayhq/friday/internal/llm"
	"github.com/fridayhq/friday/internal/store"
	"github.com/fridayhq/friday/internal/telemetry"
	"github.com/fridayhq/friday/internal/vector"
)

func Run(cfg *appconfig.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, HTTPError{Error: msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "Cookie"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	ctx := context.Background()
	dsn := cfg.Storage.Postgres.DSN()
	if err := Migrate("file://migrations", dsn, "up", 0); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		return err
	}

	// Redis backs the upsert ledger and the Drive listing cache; without it
	// both fall back to process-local state.
	var sharedCache *cache.Cache
	var ledger vector.Ledger = vector.NewMemoryLedger()
	if cfg.Storage.Redis.Enabled() {
		client, err := cache.Conn(ctx, cfg.Storage.Redis.Host, cfg.Storage.Redis.Port, cfg.Storage.Redis.Password, cfg.Storage.Redis.DB, cfg.Storage.Redis.Timeout)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		sharedCache = cache.New(client)
		ledger = sharedCache
	}

	embedLogger := log.New(log.Writer(), "[EMBED] ", log.LstdFlags)
	embedder := embedding.New(embedding.Config{
		BaseURL:       cfg.Embeddings.BaseURL,
		APIKey:        cfg.Embeddings.APIKey,
		Model:         cfg.Embeddings.Model,
		Timeout:       cfg.Embeddings.Timeout,
		Retries:       cfg.Embeddings.Retries,
		LocalFallback: cfg.Embeddings.LocalFallback,
	}, embedLogger)

	vectorLogger := log.New(log.Writer(), "[VECTOR] ", log.LstdFlags)
	vectors := vector.New(vector.Config{
		BaseURL:   cfg.Vector.BaseURL,
		Namespace: cfg.Vector.Namespace,
		Timeout:   cfg.Vector.Timeout,
	}, vectorLogger)
	indexer := vector.NewIndexer(chunk.NewSplitter(0), embedder, vectors, ledger, vectorLogger)

	var library assistant.Library
	if cfg.Drive.Configured() {
		driveLogger := log.New(log.Writer(), "[DRIVE] ", log.LstdFlags)
		var opts []option.ClientOption
		switch {
		case cfg.Drive.CredentialsFile != "":
			opts = append(opts, option.WithCredentialsFile(cfg.Drive.CredentialsFile))
		case cfg.Drive.RefreshToken != "":
			opts = append(opts, files.OAuthTokenSource(ctx, cfg.Drive.ClientID, cfg.Drive.ClientSecret, cfg.Drive.RefreshToken))
		default:
			opts = append(opts, option.WithAPIKey(cfg.Drive.APIKey))
		}
		drive, err := files.New(ctx, driveLogger, opts...)
		if err != nil {
			return fmt.Errorf("drive: %w", err)
		}
		library = NewLibrary(drive, sharedCache, indexer, driveLogger)
	}

	providers := make([]llm.Provider, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		providers = append(providers, llm.Provider{
			Name:        p.Name,
			URL:         p.URL,
			Key:         p.APIKey,
			Model:       p.Model,
			Shape:       llm.Shape(p.Shape),
			Enabled:     p.Enabled,
			Priority:    p.Priority,
			MaxTokens:   p.MaxTokens,
			Temperature: p.Temperature,
		})
	}
	llmLogger := log.New(log.Writer(), "[LLM] ", log.LstdFlags)
	generator := llm.NewGenerator(providers, cfg.General.DefaultTimeout, llmLogger)
	generator.OnFailure = func(provider string) {
		telemetry.ProviderFailuresTotal.WithLabelValues(provider).Inc()
	}

	sessions := NewSessionRegistry()
	conversations := convo.NewManager()
	assistLogger := log.New(log.Writer(), "[ASSIST] ", log.LstdFlags)
	assist := assistant.New(embedder, vectors, library, sessions, generator, conversations, st, assistLogger)

	secret := []byte(cfg.Server.JWTSecret)
	api := e.Group("/api")
	auth := &AuthHandler{Store: st, Secret: secret}
	auth.Register(api.Group("/auth"))

	meetings := &MeetingsHandler{Store: st, Sessions: sessions}
	meetings.Register(api.Group("/meetings"), secret)
	transcripts := &TranscriptsHandler{Store: st, Sessions: sessions}
	transcripts.Register(api.Group("/meetings"), secret)
	chat := &ChatHandler{Store: st, Assistant: assist, Conversations: conversations}
	chat.Register(api.Group("/meetings"), secret)

	ops := &OpsHandler{Store: st, Generator: generator, Vectors: vectors}
	ops.Register(api.Group("/ops"), secret)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}
	return e.StartServer(srv)
}

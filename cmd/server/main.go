// Black Belt Prep FAQ chatbot server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/qvu3/bb-chatbot/internal/answer"
	"github.com/qvu3/bb-chatbot/internal/api"
	"github.com/qvu3/bb-chatbot/internal/chat"
	"github.com/qvu3/bb-chatbot/internal/config"
	"github.com/qvu3/bb-chatbot/internal/faq"
	"github.com/qvu3/bb-chatbot/internal/identity"
	"github.com/qvu3/bb-chatbot/internal/metrics"
	"github.com/qvu3/bb-chatbot/internal/middleware"
	"github.com/qvu3/bb-chatbot/internal/notify"
	"github.com/qvu3/bb-chatbot/internal/session"
	"github.com/qvu3/bb-chatbot/internal/store"
	"github.com/qvu3/bb-chatbot/internal/transcript"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting server", "port", cfg.Port, "strategy", cfg.Answer.Strategy, "escalation_policy", cfg.Escalation.Policy)

	corpus, err := faq.Load(cfg.FAQPath)
	if err != nil {
		slog.Error("Failed to load FAQ corpus", "path", cfg.FAQPath, "error", err)
		os.Exit(1)
	}

	// Initialize dependencies.
	repo := openRepository(cfg.DatabaseURL)
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	m := metrics.New()

	loc, err := cfg.Location()
	if err != nil {
		slog.Error("Invalid business time zone", "error", err)
		os.Exit(1)
	}
	router := notify.NewRouter(
		webhookNotifier(cfg),
		emailNotifier(cfg),
		notify.DefaultBusinessHours(loc),
		notify.WithObserver(m),
	)
	notifier := notify.NewAsync(router, cfg.Escalation.NotifyTimeout, cfg.Escalation.MaxInflight)

	transcripts, err := transcript.New(transcript.Config{
		Enabled:   cfg.Transcript.Enabled,
		Dir:       cfg.Transcript.Dir,
		QueueSize: cfg.Transcript.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize transcript logger", "error", err)
		os.Exit(1)
	}
	defer func() { _ = transcripts.Close() }()

	opts := []chat.Option{
		chat.WithPolicy(cfg.Escalation.Policy),
		chat.WithObserver(m),
		chat.WithLogger(logger),
	}
	if transcripts != nil {
		opts = append(opts, chat.WithTranscript(transcripts))
		slog.Info("Transcript logging enabled", "dir", cfg.Transcript.Dir)
	}

	dispatcher := chat.NewDispatcher(
		session.NewMemoryStore(),
		answer.NewFromConfig(context.Background(), cfg.Answer),
		corpus,
		repo,
		notifier,
		opts...,
	)

	// Initialize handlers.
	chatHandler := api.NewHandler(dispatcher)
	healthHandler := api.NewHealthHandler(repo, len(corpus), dispatcher.Policy())
	conns := api.NewConnManager()
	wsHandler := api.NewChatSocketHandler(dispatcher, conns, cfg.AllowedOrigins)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(identity.Middleware)

	healthHandler.RegisterHealth(r)
	chatHandler.RegisterRoutes(r)
	r.Handle("/metrics", m.Handler())

	// WebSocket endpoint.
	r.Get("/ws/chat", wsHandler.ServeHTTP)

	// WriteTimeout stays 0 so WebSocket connections are not cut.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conns.CloseAll("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	if err := notifier.Wait(shutdownCtx); err != nil {
		slog.Warn("Pending escalations not delivered before shutdown", "error", err)
	}

	slog.Info("Server stopped successfully")
}

// openRepository opens SQLite when a database is configured. Any failure
// degrades to a repository that reports every email as already present.
func openRepository(dsn string) store.Repository {
	if dsn == "" {
		slog.Info("DATABASE_URL not set, email persistence disabled")
		return store.Disabled{}
	}

	repo, err := store.NewSQLite(dsn)
	if err != nil {
		slog.Error("Failed to initialize database, email persistence disabled", "error", err)
		return store.Disabled{}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := repo.Ping(ctx); err != nil {
		slog.Error("Database health check failed", "error", err)
	} else {
		slog.Info("Database connected")
	}
	return repo
}

func webhookNotifier(cfg *config.Config) notify.Notifier {
	if cfg.Escalation.WebhookURL == "" {
		return nil
	}
	n, err := notify.NewWebhookNotifier(cfg.Escalation.WebhookURL, &http.Client{Timeout: cfg.Escalation.NotifyTimeout})
	if err != nil {
		slog.Error("Webhook escalation disabled", "error", err)
		return nil
	}
	slog.Info("Webhook escalation enabled")
	return n
}

func emailNotifier(cfg *config.Config) notify.Notifier {
	if !cfg.SMTP.Enabled() {
		return nil
	}
	n, err := notify.NewEmailNotifier(notify.EmailConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		To:       cfg.Escalation.SupportEmail,
	})
	if err != nil {
		slog.Error("Email escalation disabled", "error", err)
		return nil
	}
	slog.Info("Email escalation enabled", "to", cfg.Escalation.SupportEmail)
	return n
}

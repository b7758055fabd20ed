// Package main is the entry point for the inbox sync service.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/inboxhq/support-inbox/internal/assist"
	"github.com/inboxhq/support-inbox/internal/config"
	"github.com/inboxhq/support-inbox/internal/engine"
	"github.com/inboxhq/support-inbox/internal/gateway"
	"github.com/inboxhq/support-inbox/internal/handler"
	"github.com/inboxhq/support-inbox/internal/middleware"
	"github.com/inboxhq/support-inbox/internal/push"
	"github.com/inboxhq/support-inbox/pkg/logger"
	"github.com/inboxhq/support-inbox/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Without a confirmed tenant identity nothing below may run.
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting inbox sync service", zap.String("tenant_id", cfg.TenantID))

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "support-inbox", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect the push channel.
	pushClient, err := push.Connect(push.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		log.Error("failed to connect to NATS", zap.Error(err))
		os.Exit(1)
	}
	defer pushClient.Close()

	// Backend gateway.
	gw := gateway.New(gateway.Config{
		BaseURL: cfg.BackendURL,
		Token:   cfg.BackendToken,
	}, log)

	// Assist provider, if configured.
	var suggester engine.Suggester
	switch {
	case cfg.AnthropicAPIKey != "" || cfg.OpenAIAPIKey != "":
		apiKey := cfg.AnthropicAPIKey
		provider := assist.Provider(cfg.DefaultAssist)
		if provider == assist.ProviderOpenAI {
			apiKey = cfg.OpenAIAPIKey
		}
		client, err := assist.NewClient(provider, apiKey)
		if err != nil {
			log.Warn("failed to create assist client, suggestions disabled", zap.Error(err))
		} else {
			suggester = assist.NewSuggester(client, log)
		}
	}

	// The engine.
	eng, err := engine.New(engine.Config{
		TenantID:             cfg.TenantID,
		AdminOverride:        cfg.AdminOverride,
		ConversationPageSize: cfg.ConversationPageSize,
		MessagePageSize:      cfg.MessagePageSize,
		DedupeWindow:         cfg.DedupeWindow,
		RefreshInterval:      cfg.RefreshInterval,
		TypingTTL:            cfg.TypingTTL,
		AssistTypingTTL:      cfg.AssistTypingTTL,
	}, gw, suggester, log)
	if err != nil {
		log.Error("failed to create engine", zap.Error(err))
		os.Exit(1)
	}
	eng.Start()

	subscriber := push.NewSubscriber(pushClient, log)
	if err := subscriber.Subscribe(cfg.TenantID, eng.HandlePush); err != nil {
		log.Error("failed to subscribe to push events", zap.Error(err))
		os.Exit(1)
	}

	// Handlers.
	healthHandler := handler.NewHealthHandler(pushClient)
	inboxHandler := handler.NewInboxHandler(eng, log)
	streamHandler := handler.NewStreamHandler(eng, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/inbox", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RequireTenant(cfg.TenantID))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Get("/", inboxHandler.Snapshot)
		r.Get("/stream", streamHandler.Stream)

		r.Post("/conversations/{id}/select", inboxHandler.Select)
		r.Post("/conversations/more", inboxHandler.LoadMore)

		r.Post("/messages", inboxHandler.Submit)
		r.Post("/messages/older", inboxHandler.LoadOlder)
		r.Post("/messages/{tempID}/retry", inboxHandler.Retry)
		r.Delete("/messages/{tempID}", inboxHandler.Dismiss)

		r.Post("/viewport", inboxHandler.Viewport)
		r.Post("/suggest", inboxHandler.Suggest)
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	// Tear down in dependency order: stop the push feed, then the
	// engine, then the HTTP surface.
	if err := subscriber.Unsubscribe(); err != nil {
		log.Warn("failed to unsubscribe from push events", zap.Error(err))
	}
	eng.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("stopped")
}

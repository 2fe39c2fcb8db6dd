// Package main is the entry point for the API server.
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

	"github.com/alba-hq/conciergerie-platform/internal/ai"
	"github.com/alba-hq/conciergerie-platform/internal/config"
	"github.com/alba-hq/conciergerie-platform/internal/events"
	"github.com/alba-hq/conciergerie-platform/internal/handler"
	"github.com/alba-hq/conciergerie-platform/internal/llm"
	"github.com/alba-hq/conciergerie-platform/internal/mailer"
	"github.com/alba-hq/conciergerie-platform/internal/middleware"
	"github.com/alba-hq/conciergerie-platform/internal/store"
	"github.com/alba-hq/conciergerie-platform/pkg/logger"
	"github.com/alba-hq/conciergerie-platform/pkg/tracing"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "conciergerie-platform", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Event stream. The platform degrades to a no-op publisher when NATS is
	// unreachable so the API stays up.
	var publisher events.Publisher = events.NopPublisher{}
	var natsClient *events.Client
	if cfg.NATSURL != "" {
		natsClient, err = events.Connect(ctx, events.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Warn("NATS unavailable, events disabled", zap.Error(err))
		} else {
			defer natsClient.Close()
			streamPublisher := events.NewStreamPublisher(natsClient)
			if err := streamPublisher.EnsureStream(ctx); err != nil {
				log.Error("failed to ensure event stream", zap.Error(err))
				os.Exit(1)
			}
			publisher = streamPublisher
		}
	}

	// Storage
	var st store.Store
	switch cfg.StoreDriver {
	case "memory":
		log.Warn("using in-memory store, data will not survive restarts")
		st = store.NewMemoryStore()
	default:
		pg, err := store.NewPostgresStore(store.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPassword,
			DBName:   cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSLMode,
		}, log)
		if err != nil {
			log.Error("failed to connect to postgres", zap.Error(err))
			os.Exit(1)
		}
		st = pg
	}

	// LLM client
	provider := llm.Provider(cfg.DefaultLLM)
	apiKey := cfg.OpenAIAPIKey
	if provider == llm.ProviderAnthropic {
		apiKey = cfg.AnthropicAPIKey
	}
	llmClient, err := llm.NewClient(provider, apiKey)
	if err != nil {
		log.Error("failed to create LLM client", zap.Error(err))
		os.Exit(1)
	}

	// Outbound mail relay
	var relay mailer.Relay
	if cfg.RelayEnabled {
		relay, err = mailer.NewHTTPRelay(mailer.Config{
			BaseURL: cfg.RelayBaseURL,
			APIKey:  cfg.RelayAPIKey,
			From:    cfg.RelayFrom,
			Timeout: cfg.RelayTimeout,
		}, log)
		if err != nil {
			log.Error("failed to create mail relay", zap.Error(err))
			os.Exit(1)
		}
	}

	// Decision pipeline
	pipeline := ai.NewPipeline(
		ai.NewContextBuilder(st),
		llmClient,
		ai.NewEvaluator(ai.DefaultEvaluatorConfig()),
		ai.NewPolicy(ai.DefaultPolicyConfig()),
		ai.NewExecutor(st, relay, publisher, log),
		ai.GenerationOptions{
			Model:       cfg.LLMModel,
			MaxTokens:   cfg.LLMMaxTokens,
			Temperature: cfg.LLMTemperature,
			Timeout:     cfg.LLMTimeout,
		},
		log,
	)

	// Handlers
	healthHandler := handler.NewHealthHandler(natsClient)
	conversationHandler := handler.NewConversationHandler(st, log)
	messageHandler := handler.NewMessageHandler(st, relay, publisher, log)
	generateHandler := handler.NewGenerateHandler(pipeline, log)
	aiResponseHandler := handler.NewAIResponseHandler(st, log)
	notificationHandler := handler.NewNotificationHandler(st, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", conversationHandler.Create)
			r.Get("/", conversationHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", conversationHandler.Get)
				r.Patch("/", conversationHandler.Update)
				r.Post("/read", conversationHandler.MarkRead)

				r.Get("/messages", messageHandler.List)
				r.Post("/messages", messageHandler.Send)

				r.Get("/suggestion", aiResponseHandler.LatestSuggestion)

				r.With(middleware.GenerationRateLimit(10, time.Minute)).
					Post("/ai-response", generateHandler.Generate)
			})
		})

		r.Patch("/ai-responses/{id}/feedback", aiResponseHandler.Feedback)

		r.Get("/organizations/stats", aiResponseHandler.Stats)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", notificationHandler.List)
			r.Post("/read-all", notificationHandler.MarkAllRead)
			r.Post("/{id}/read", notificationHandler.MarkRead)
		})
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

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

// Command agent runs the headless StyleSlot client: it logs in, watches the
// account's appointments, keeps conversation sync sessions alive, and serves
// health and metrics endpoints.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/styleslot/styleslot-go/internal/agent"
	"github.com/styleslot/styleslot-go/internal/api"
	"github.com/styleslot/styleslot-go/internal/archive"
	"github.com/styleslot/styleslot-go/internal/cable"
	appconfig "github.com/styleslot/styleslot-go/internal/config"
	"github.com/styleslot/styleslot-go/internal/conversation"
	"github.com/styleslot/styleslot-go/internal/creds"
	"github.com/styleslot/styleslot-go/internal/observability/metrics"
	"github.com/styleslot/styleslot-go/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting styleslot agent",
		"env", cfg.Env,
		"port", cfg.Port,
		"api_url", cfg.APIBaseURL,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := api.New(api.Config{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.HTTPTimeout,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("api client setup failed", "error", err)
		os.Exit(1)
	}

	credStore, err := buildCredStore(cfg)
	if err != nil {
		logger.Error("credential store setup failed", "error", err)
		os.Exit(1)
	}

	auth := agent.NewAuthenticator(client, credStore, cfg.AgentEmail, cfg.AgentPassword, logger)
	session, err := auth.EnsureSession(ctx)
	if err != nil {
		logger.Error("authentication failed", "error", err)
		os.Exit(1)
	}

	syncMetrics := metrics.NewSyncMetrics(nil)

	consumer := cable.NewConsumer(cfg.CableURL, session.Token, logger)
	defer consumer.Close()
	if err := consumer.Connect(ctx); err != nil {
		logger.Warn("cable connect failed, sessions run poll-only", "error", err)
	}

	registry := conversation.NewRegistry(func(conversationID int64) *conversation.Session {
		return conversation.NewSession(conversationID, client, client, logger,
			conversation.WithPollInterval(cfg.PollInterval),
			conversation.WithPushSource(consumer),
			conversation.WithSyncMetrics(syncMetrics),
		)
	}, logger)
	defer registry.Close()

	watcher := agent.NewWatcher(client, registry, session.User.Viewer(), logger).
		WithInterval(cfg.AppointmentsInterval).
		WithPageSize(cfg.AppointmentsPageSize)

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("archive pool setup failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		store := archive.NewStore(pool)
		watcher = watcher.WithArchive(store, store)
		logger.Info("conversation archive enabled")
	}

	go watcher.Run(ctx)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if pool != nil {
			if err := pool.Ping(req.Context()); err != nil {
				http.Error(w, "archive unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/status", statusHandler(session.User, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("agent listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down agent...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("agent stopped")
}

func buildCredStore(cfg *appconfig.Config) (creds.Store, error) {
	if cfg.CredentialBackend == "redis" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		return creds.NewRedisStore(rdb), nil
	}
	return creds.NewMemoryStore(), nil
}

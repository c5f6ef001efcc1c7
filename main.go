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
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/AlexIndustrial/latebot/internal/config"
	"github.com/AlexIndustrial/latebot/internal/console"
	"github.com/AlexIndustrial/latebot/internal/container"
	"github.com/AlexIndustrial/latebot/internal/handler"
	"github.com/AlexIndustrial/latebot/internal/middleware"
	"github.com/AlexIndustrial/latebot/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.WithFields(map[string]interface{}{
		"port":        cfg.Port,
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
	}).Info("Starting latebot server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := container.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create container")
	}
	defer c.Cleanup()

	// Bound the rate limiter's memory over time
	c.RateLimiter.StartJanitor(ctx)

	// Operator console on stdin, alongside the webhook server
	repl := console.New(c.VotingService, c.RateLimiter, os.Stdin, os.Stdout, log)
	go repl.Run(ctx)

	router := setupRouter(c)

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("Server starting on port " + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-serverErrChan:
		log.WithError(err).Error("Server failed, initiating shutdown")
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}

	log.Info("Application shutdown complete")
}

// setupRouter configures and returns the HTTP router
func setupRouter(c *container.Container) *chi.Mux {
	cfg := c.Config
	log := c.Logger

	r := chi.NewRouter()

	r.Use(middleware.RequestID())
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Compress(5))
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	healthHandler := handler.NewHealthHandler(c)
	webhookHandler := handler.NewWebhookHandler(c.Gate, c.VotingService, c.Telegram, cfg.TargetName, log)
	statsHandler := handler.NewStatsHandler(c.VotingService, log)

	r.Get("/health", healthHandler.Check)

	// Telegram delivers updates here; the secret header proves origin
	r.Group(func(r chi.Router) {
		r.Use(middleware.WebhookSecret(cfg.WebhookSecret, log))
		r.Post("/telegram/webhook", webhookHandler.HandleUpdate)
	})

	// Admin read-only API
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.AdminAuth(cfg.AdminJWTSecret, log))

		r.Get("/days/today", statsHandler.GetToday)
		r.Get("/days/{date}", statsHandler.GetDay)
		r.Get("/stats", statsHandler.GetStats)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"type":"not_found","message":"Endpoint not found"}}`))
	})

	log.Info("Router configured successfully")
	return r
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/docanchor/docanchor/internal/answer"
	"github.com/docanchor/docanchor/internal/api"
	"github.com/docanchor/docanchor/internal/config"
	"github.com/docanchor/docanchor/internal/match"
	"github.com/docanchor/docanchor/internal/pagetext"
	"github.com/docanchor/docanchor/internal/viewer"
)

func main() {
	// Load .env if present; deployments set the environment directly.
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.APIKey == "" {
		log.Warn("DOCANCHOR_API_KEY not set, API is unauthenticated")
	}

	tuning := match.DefaultTuning()
	if cfg.TuningPath != "" {
		var err error
		tuning, err = match.LoadTuning(cfg.TuningPath)
		if err != nil {
			log.Error("invalid match tuning", "path", cfg.TuningPath, "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	backend := answer.NewClient(cfg.BackendURL, cfg.BackendAPIKey)

	// Initialize session store.
	sessions := viewer.NewStore(cfg.SessionTTL, cfg.DefaultScale, viewer.OpenPDF,
		pagetext.NewExtractor(), match.New(tuning), log)
	sessions.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(sessions, backend, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown. Drain HTTP before closing sessions so in-flight
	// renders finish against live documents.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		sessions.Stop()
		backend.Close()
	}()

	log.Info("starting docanchor", "port", cfg.Port, "backend", cfg.BackendURL)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

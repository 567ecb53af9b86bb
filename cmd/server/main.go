package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"supermaya/internal/api"
	"supermaya/internal/config"
	"supermaya/internal/logging"
	"supermaya/pkg/supermaya"
)

func main() {
	var dataDir string
	var port int
	var host string

	flag.StringVar(&dataDir, "data-dir", "", "Directory for storing database and application data")
	flag.IntVar(&port, "port", 8000, "Port to run the server on")
	flag.StringVar(&host, "host", "127.0.0.1", "Host to bind the server to")
	flag.Parse()

	settings, err := config.Load(dataDir)
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	logDir := filepath.Join(settings.DataDir, "logs")
	logger, writer, err := logging.NewLogger(logDir, slog.LevelInfo)
	if err != nil {
		slog.Error("failed to initialize logger", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			logger.Error("failed to close log writer", "err", err)
		}
	}()

	if settings.GeneratedSecretKey {
		logger.Warn("no signing secret configured; using an ephemeral key, tokens will not survive a restart", "env", config.EnvSecretKey)
	}

	core, err := supermaya.OpenWithOptions(supermaya.Options{
		DBPath:          settings.DBPath,
		Logger:          logger,
		GroqAPIKey:      settings.GroqAPIKey,
		GroqBaseURL:     settings.GroqBaseURL,
		GroqModel:       settings.GroqModel,
		AnthropicAPIKey: settings.AnthropicAPIKey,
		AnthropicModel:  settings.AnthropicModel,
		GeminiAPIKey:    settings.GeminiAPIKey,
		GeminiModel:     settings.GeminiModel,
		TextProvider:    settings.TextProvider,
	})
	if err != nil {
		logger.Error("failed to initialize core", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := core.Close(); err != nil {
			logger.Error("failed to close core", "err", err)
		}
	}()

	tokens := api.NewTokenAuthority([]byte(settings.SecretKey), settings.TokenTTL)

	addr := fmt.Sprintf("%s:%d", host, port)
	handler := middleware.Compress(5)(api.NewRouter(core, tokens))

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("server starting", "addr", addr, "db", settings.DBPath)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop

	logger.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "err", err)
	}
}

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

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/sharad1666/GD-AI-App/bus"
	"github.com/sharad1666/GD-AI-App/config"
	"github.com/sharad1666/GD-AI-App/hub"
	"github.com/sharad1666/GD-AI-App/metrics"
	"github.com/sharad1666/GD-AI-App/protocol"
	"github.com/sharad1666/GD-AI-App/ratelimit"
	"github.com/sharad1666/GD-AI-App/transcript"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg := config.Load()
	setupLogger(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store := openStore(cfg)
	defer store.Close()

	registry := hub.NewRegistry()
	directory := hub.NewDirectory()
	handler := protocol.NewHandler(registry, directory, store)
	handler.RequireMembership(cfg.StrictRoomCheck)

	if cfg.RedisAddr != "" {
		b, err := bus.NewRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			slog.Error("redis connect failed", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		defer b.Close()
		handler.UseBus(b)
		go b.Subscribe(ctx, handler.DeliverLocal)
		slog.Info("redis bus enabled", "addr", cfg.RedisAddr)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler(handler))
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/stats", statsHandler(registry, directory))
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("GET /api/transcript/{roomId}", transcriptGetHandler(store))
	mux.HandleFunc("DELETE /api/transcript/{roomId}", transcriptClearHandler(store))
	mux.HandleFunc("POST /api/evaluation/report", evaluationHandler)
	mux.HandleFunc("POST /api/evaluation/report/pdf", evaluationPDFHandler)

	corsMW := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSAllow,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})

	var root http.Handler = mux
	if cfg.RateLimitRPM > 0 {
		root = ratelimit.New(cfg.RateLimitRPM, time.Minute).Middleware(root)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           corsMW.Handler(root),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	slog.Info("server shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func setupLogger(logLevel string) {
	level := slog.LevelInfo
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func openStore(cfg config.Config) transcript.Store {
	if cfg.TranscriptDB == "" {
		return transcript.NewMemoryStore()
	}
	store, err := transcript.OpenSQLite(cfg.TranscriptDB)
	if err != nil {
		slog.Error("transcript db open failed", "path", cfg.TranscriptDB, "error", err)
		os.Exit(1)
	}
	slog.Info("transcript persistence enabled", "path", cfg.TranscriptDB)
	return store
}

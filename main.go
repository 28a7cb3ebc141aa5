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
	"github.com/jonboulle/clockwork"

	"github.com/preetjindal555-coder/what-sapp/config"
	"github.com/preetjindal555-coder/what-sapp/hub"
	"github.com/preetjindal555-coder/what-sapp/protocol"
	"github.com/preetjindal555-coder/what-sapp/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}
	setupLogger()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}

	clock := clockwork.NewRealClock()
	broadcaster := hub.New(clock)
	handler := protocol.NewHandler(broadcaster, clock)
	srv := server.New(cfg.Addr(), broadcaster, handler)

	if err := srv.Listen(); err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}
	go func() {
		if err := srv.Serve(); err != nil {
			slog.Error("serve error", "error", err)
			os.Exit(1)
		}
	}()

	var gateway *http.Server
	if cfg.HTTPAddr != "" {
		gateway = &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: srv.GatewayHandler(),
		}
		go func() {
			slog.Info("http gateway starting", "addr", cfg.HTTPAddr)
			if err := gateway.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				slog.Error("gateway error", "error", err)
				os.Exit(1)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("server shutting down")
	if gateway != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := gateway.Shutdown(ctx); err != nil {
			slog.Error("gateway shutdown error", "error", err)
		}
	}
	srv.Shutdown()
}

func setupLogger() {
	level := slog.LevelInfo
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

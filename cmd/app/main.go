package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"courier-dispatch/cmd"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
	"github.com/spf13/pflag"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("Error loading .env file: %v", err)
	}

	cfg, err := cmd.LoadConfig(pflag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	infra, err := cmd.OpenInfrastructure(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("open infrastructure: %v", err)
	}
	defer infra.Close()

	app, err := cmd.NewCompositionRoot(ctx, cfg, infra, logger)
	if err != nil {
		infra.Close()
		log.Fatalf("build application: %v", err)
	}

	if err = app.Jobs.StartAll(); err != nil {
		infra.Close()
		log.Fatalf("start jobs: %v", err)
	}
	defer app.Jobs.StopAll()

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := app.Consumer.Run(ctx); err != nil {
			logger.Error("location consumer stopped", "error", err)
		}
	}()

	opsServer := &http.Server{
		Addr:              net.JoinHostPort("", cfg.OpsPort),
		Handler:           app.Ops,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server stopped", "error", err)
			stop()
		}
	}()

	go func() {
		logger.Info("http server started", "port", cfg.HTTPPort, "ops_port", cfg.OpsPort)
		if err := app.Echo.Start(net.JoinHostPort("0.0.0.0", cfg.HTTPPort)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.Echo.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops shutdown", "error", err)
	}
	<-consumerDone
	if err := app.Consumer.Close(); err != nil {
		logger.Error("close location consumer", "error", err)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BAMresearch/McSAS/internal/mcsasd"
	"github.com/BAMresearch/McSAS/internal/storage"
	"github.com/BAMresearch/McSAS/pkg/config"
	"github.com/BAMresearch/McSAS/pkg/logger"
)

func main() {
	var configPath string
	var listenAddr string
	var logLevel string
	var logFormat string

	flag.StringVar(&configPath, "config", "", "path to daemon configuration YAML")
	flag.StringVar(&listenAddr, "listen", "", "HTTP listen address (overrides config)")
	flag.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error; overrides config)")
	flag.StringVar(&logFormat, "log-format", "json", "log format (json or text)")
	flag.Parse()

	cfg := defaultDaemonConfig()
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			logger.Error("failed to load config", "path", configPath, "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	if logFormat == "text" {
		logger.SetDefault(logger.NewText(cfg.LogLevel, os.Stdout))
	} else {
		logger.SetDefault(logger.New(cfg.LogLevel, os.Stdout))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	persist, err := storage.NewStore(cfg.Store.Backend, cfg.Store.Path)
	if err != nil {
		logger.Error("failed to create store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	if err := persist.Init(ctx); err != nil {
		logger.Error("failed to initialize store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := persist.Close(); err != nil {
			logger.Error("store close error", "error", err)
		}
	}()

	store := mcsasd.NewRunStore()
	executor := mcsasd.NewFitExecutor(store, persist)

	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           mcsasd.NewHTTPServer(store, executor, persist).WithDefaultSettings(cfg.Defaults).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", cfg.Listen)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
}

func defaultDaemonConfig() *config.Config {
	return &config.Config{
		LogLevel: "info",
		Listen:   ":8080",
		Store:    &config.Store{Backend: "memory"},
		Defaults: config.DefaultSettings(),
	}
}

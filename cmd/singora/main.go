package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/arawak/singora/internal/config"
	"github.com/arawak/singora/internal/export"
	"github.com/arawak/singora/internal/httpapi"
	"github.com/arawak/singora/internal/logging"
	"github.com/arawak/singora/internal/media"
	"github.com/arawak/singora/internal/staging"
	"github.com/arawak/singora/internal/store"
	"github.com/arawak/singora/migrations"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	base, logCloser, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logging:", err)
		os.Exit(1)
	}
	defer logCloser.Close()
	logger := base.With("version", version)

	var apiKeys *httpapi.APIKeyStore
	if cfg.AuthMode == config.AuthAPIKey && cfg.APIKeysFile != "" {
		apiKeys, err = httpapi.LoadAPIKeys(cfg.APIKeysFile)
		if err != nil {
			logger.Error("failed to load api keys", "error", err)
			os.Exit(1)
		}
		logger.Info("api keys loaded", "count", apiKeys.Len())
	}

	db, err := sqlx.Open("mysql", cfg.DBDSN)
	if err != nil {
		logger.Error("failed to open db", "error", err)
		os.Exit(1)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := migrations.Up(cfg.DBDSN); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	images := store.New(db)
	stg := staging.NewManager(cfg.StagingDir)
	if err := stg.IsWritable(); err != nil {
		logger.Error("staging directory not writable", "dir", cfg.StagingDir, "error", err)
		os.Exit(1)
	}
	exports := export.NewService(images, stg, export.Options{
		Workers:  cfg.ExportWorkers,
		BasePath: httpapi.APIPrefix,
		Logger:   logger.With("component", "export"),
	})

	router := httpapi.NewRouter(cfg, httpapi.Deps{
		Images:    images,
		Exports:   exports,
		Staging:   stg,
		Validator: media.NewValidator(cfg.MaxUploadBytes, cfg.MaxPixels),
		APIKeys:   apiKeys,
		Logger:    logger,
	})

	srv := &http.Server{Addr: cfg.Bind, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Info("server starting", "addr", cfg.Bind, "auth_mode", cfg.AuthMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down gracefully")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if n := stg.Active(); n > 0 {
		logger.Warn("staged exports still active at shutdown", "count", n)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}
}

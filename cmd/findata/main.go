package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"findata/internal/analysis"
	"findata/internal/auth"
	"findata/internal/cli"
	apphttp "findata/internal/http"
	applog "findata/internal/log"
)

func main() {
	logger := cli.SetupLogger()
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("Failed to close repository", "error", err)
		}
	}()

	authSvc := auth.NewService(repo, cfg.SessionTTL, cfg.BcryptCost, cfg.DemoEmail)
	engine := analysis.NewEngine(repo)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:          ":" + cfg.Port,
		DemoEnabled:   cfg.DemoEnabled,
		SecureCookies: cfg.SecureCookies,
		SessionTTL:    cfg.SessionTTL,
	}, repo, authSvc, engine, logger)

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	pruneCtx, pruneCancel := context.WithCancel(context.Background())
	defer pruneCancel()
	go authSvc.PruneSessions(pruneCtx, time.Hour)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		pruneCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting findata server",
		"port", cfg.Port,
		"db_path", cfg.SQLiteDBPath,
		"demo_enabled", cfg.DemoEnabled,
		applog.FieldOperation, applog.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully", applog.FieldOperation, applog.OpShutdown)
}

// cmd/canary-runner/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"finpulse/internal/canary"
	"finpulse/internal/common/auth"
	awsclients "finpulse/internal/common/aws"
	"finpulse/internal/common/config"
	"finpulse/internal/common/database"
	"finpulse/internal/common/logger"
	"finpulse/internal/storage"
)

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting canary-runner...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}
	if !cfg.Canary.Enabled {
		zapLog.Info("Canary disabled, exiting")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Init backing stores ---
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("postgres init failed", zap.Error(err))
	}
	defer pg.Close()

	rdb, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		zapLog.Fatal("redis init failed", zap.Error(err))
	}
	defer rdb.Close()

	// --- Resolve signing key ---
	var secrets auth.SecretsProvider
	if cfg.AWS.Secrets.SigningKeyID != "" {
		secretsClient, err := awsclients.NewSecretsClient(ctx, cfg.AWS.Region)
		if err != nil {
			zapLog.Fatal("secrets client init failed", zap.Error(err))
		}
		secrets = secretsClient
	}
	signingKey, err := auth.ResolveSigningKey(ctx, secrets, cfg.AWS.Secrets.SigningKeyID, cfg.Auth.SigningKey)
	if err != nil {
		zapLog.Fatal("signing key resolution failed", zap.Error(err))
	}

	// --- Wire the runner ---
	var alerter canary.Alerter
	if cfg.AWS.SNS.Enabled && cfg.Canary.AlertOnFail {
		snsClient, err := awsclients.NewSNSClient(ctx, cfg.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client init failed", zap.Error(err))
		}
		alerter = canary.NewSNSAlerter(snsClient, cfg.AWS.SNS.AlertTopicARN)
	}

	runner := canary.NewRunner(canary.RunnerOptions{
		Sessions:  auth.NewSessionStore(rdb.Client, time.Duration(cfg.Auth.SessionTTL)*time.Second),
		Tokens:    auth.NewTokenCodec(signingKey, time.Duration(cfg.Auth.TokenTTL)*time.Second),
		UserEmail: cfg.Canary.UserEmail,
		Alerter:   alerter,
		Logger:    log,
	})

	client := canary.NewClient(cfg.Canary.BaseURL, time.Duration(cfg.Canary.Timeout)*time.Millisecond)
	store := storage.NewPostgresStore(pg)

	runOnce := func() {
		probes := []canary.Probe{
			canary.NewCreateUserProbe(client, store),
			canary.NewGetUserProbe(client),
		}
		if failed := runner.RunAll(ctx, probes); failed > 0 {
			zapLog.Warn("Canary run had failures", zap.Int("failed", failed))
		}
	}

	// Interval 0 means a single run, for cron-style scheduling.
	if cfg.Canary.Interval <= 0 {
		runOnce()
		return
	}

	// --- Metrics server for the long-running mode ---
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: promhttp.Handler(),
	}
	go func() {
		zapLog.Info("Metrics server listening", zap.Int("port", cfg.Server.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("metrics server failed", zap.Error(err))
		}
	}()

	ticker := time.NewTicker(time.Duration(cfg.Canary.Interval) * time.Millisecond)
	defer ticker.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	runOnce()
	for {
		select {
		case <-ticker.C:
			runOnce()
		case <-stop:
			zapLog.Info("Shutting down...")
			cancel()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				zapLog.Error("metrics server shutdown failed", zap.Error(err))
			}
			return
		}
	}
}

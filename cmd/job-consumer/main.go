// cmd/job-consumer/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	awsclients "finpulse/internal/common/aws"
	"finpulse/internal/common/config"
	"finpulse/internal/common/database"
	"finpulse/internal/common/logger"
	"finpulse/internal/common/observability"
	"finpulse/internal/jobs"
	"finpulse/internal/storage"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting job-consumer...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("job-consumer")
	defer obs.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init AWS clients ---
	sqsClient, err := awsclients.NewSQSClient(ctx, cfg.AWS.Region)
	if err != nil {
		zapLog.Fatal("sqs client init failed", zap.Error(err))
	}

	s3Client, err := awsclients.NewS3Client(ctx, cfg.AWS.Region)
	if err != nil {
		zapLog.Fatal("s3 client init failed", zap.Error(err))
	}

	bedrockClient, err := awsclients.NewBedrockClient(ctx, cfg.AWS.Region)
	if err != nil {
		zapLog.Fatal("bedrock client init failed", zap.Error(err))
	}

	var mailer jobs.EmailSender
	if cfg.AWS.SES.Enabled {
		sesClient, err := awsclients.NewSESClient(ctx, cfg.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client init failed", zap.Error(err))
		}
		mailer = jobs.NewSESMailer(sesClient, cfg.AWS.SES.FromEmail)
	}

	// --- Wire collaborators ---
	store := storage.NewPostgresStore(pg)
	objectStore := jobs.NewS3ObjectStore(s3Client)
	llm := jobs.NewBedrockInference(bedrockClient)

	providerTimeout := time.Duration(cfg.Providers.Timeout) * time.Millisecond
	newsProvider := jobs.NewHTTPNewsProvider(cfg.Providers.NewsBaseURL, cfg.Providers.APIKey, providerTimeout)
	market := jobs.NewHTTPMarketData(cfg.Providers.MarketBaseURL, cfg.Providers.APIKey, providerTimeout)

	newsConsumer := jobs.NewConsumer(jobs.ConsumerOptions{
		Queue:   jobs.NewSQSQueue(sqsClient, cfg.AWS.SQS.NewsSummaryQueueURL),
		Cache:   jobs.NewCache(objectStore, cfg.AWS.S3.ArtifactBucket, path.Join(cfg.AWS.S3.ArtifactPrefix, "news")),
		Store:   store,
		News:    newsProvider,
		Market:  market,
		LLM:     llm,
		ModelID: cfg.Jobs.ModelID,
		Logger:  log,
	})

	newsletterConsumer := jobs.NewConsumer(jobs.ConsumerOptions{
		Queue:   jobs.NewSQSQueue(sqsClient, cfg.AWS.SQS.NewsletterQueueURL),
		Cache:   jobs.NewCache(objectStore, cfg.AWS.S3.ArtifactBucket, path.Join(cfg.AWS.S3.ArtifactPrefix, "newsletters")),
		Store:   store,
		News:    newsProvider,
		Market:  market,
		LLM:     llm,
		Mailer:  mailer,
		ModelID: cfg.Jobs.ModelID,
		Logger:  log,
	})

	// --- Metrics server ---
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

	// --- Poll loops ---
	idleWait := time.Duration(cfg.Jobs.PollInterval) * time.Millisecond
	maxMessages := int32(cfg.Jobs.MaxMessages)

	var wg sync.WaitGroup
	for name, consumer := range map[string]*jobs.Consumer{
		"news-summary": newsConsumer,
		"newsletter":   newsletterConsumer,
	} {
		wg.Add(1)
		go func(name string, c *jobs.Consumer) {
			defer wg.Done()
			zapLog.Info("Consumer started", zap.String("consumer", name))
			if err := c.Poll(ctx, maxMessages, idleWait); err != nil && err != context.Canceled {
				zapLog.Error("consumer stopped", zap.String("consumer", name), zap.Error(err))
			}
		}(name, consumer)
	}

	// --- Wait for shutdown signal ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	zapLog.Info("Shutting down...")
	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("metrics server shutdown failed", zap.Error(err))
	}
	zapLog.Info("Shutdown complete")
}

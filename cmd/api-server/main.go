// cmd/api-server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"finpulse/internal/api"
	"finpulse/internal/common/auth"
	awsclients "finpulse/internal/common/aws"
	"finpulse/internal/common/config"
	"finpulse/internal/common/database"
	"finpulse/internal/common/logger"
	"finpulse/internal/common/observability"
	"finpulse/internal/endpoints/news"
	"finpulse/internal/endpoints/newsletter"
	"finpulse/internal/endpoints/session"
	"finpulse/internal/endpoints/stock"
	"finpulse/internal/endpoints/user"
	"finpulse/internal/jobs"
	"finpulse/internal/storage"
	"finpulse/pkg/registry"
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

	zapLog.Info("Starting api-server...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("api-server")
	defer obs.Shutdown()

	ctx := context.Background()

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

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init AWS clients ---
	sqsClient, err := awsclients.NewSQSClient(ctx, cfg.AWS.Region)
	if err != nil {
		zapLog.Fatal("sqs client init failed", zap.Error(err))
	}

	s3Client, err := awsclients.NewS3Client(ctx, cfg.AWS.Region)
	if err != nil {
		zapLog.Fatal("s3 client init failed", zap.Error(err))
	}

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

	// --- Wire collaborators ---
	tokens := auth.NewTokenCodec(signingKey, time.Duration(cfg.Auth.TokenTTL)*time.Second)
	sessions := auth.NewSessionStore(rdb.Client, time.Duration(cfg.Auth.SessionTTL)*time.Second)
	store := storage.NewPostgresStore(pg)

	objectStore := jobs.NewS3ObjectStore(s3Client)
	newsCache := jobs.NewCache(objectStore, cfg.AWS.S3.ArtifactBucket, path.Join(cfg.AWS.S3.ArtifactPrefix, "news"))
	newsQueue := jobs.NewSQSQueue(sqsClient, cfg.AWS.SQS.NewsSummaryQueueURL)
	newsletterQueue := jobs.NewSQSQueue(sqsClient, cfg.AWS.SQS.NewsletterQueueURL)

	providerTimeout := time.Duration(cfg.Providers.Timeout) * time.Millisecond
	market := jobs.NewHTTPMarketData(cfg.Providers.MarketBaseURL, cfg.Providers.APIKey, providerTimeout)

	// --- Register endpoints ---
	router := api.NewRouter()
	router.Register("/user", "POST", user.NewCreateUser(store))
	router.Register("/user", "GET", user.NewGetUser(store))
	router.Register("/user", "DELETE", user.NewDeleteUser(store, sessions))
	router.Register("/auth/login", "POST", session.NewLogin(store, sessions, tokens))
	router.Register("/auth/logout", "POST", session.NewLogout(sessions))
	router.Register("/stock", "POST", stock.NewAddStock(store, market))
	router.Register("/stock", "GET", stock.NewGetStocks(store))
	router.Register("/stock", "DELETE", stock.NewDeleteStock(store))
	router.Register("/news", "GET", news.NewGetNewsSummary(newsCache, newsQueue))
	router.Register("/newsletter", "POST", newsletter.NewRequestNewsletter(newsletterQueue))

	// --- Cross-check the published endpoint catalog ---
	if cfg.Registry.Path != "" {
		catalog, err := registry.LoadRegistry(cfg.Registry.Path)
		if err != nil {
			zapLog.Fatal("endpoint catalog load failed", zap.Error(err))
		}
		routes := make([]registry.RouteRef, 0)
		for _, r := range router.Routes() {
			routes = append(routes, registry.RouteRef{Resource: r.Resource, Verb: r.Verb})
		}
		if err := catalog.Verify(routes); err != nil {
			zapLog.Fatal("endpoint catalog verification failed", zap.Error(err))
		}
		zapLog.Info("Endpoint catalog verified", zap.Int("endpoints", len(catalog.Endpoints)))
	}

	invoker := api.NewInvoker(api.InvokerOptions{
		Tokens:   tokens,
		Sessions: sessions,
		Logger:   log,
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

	// --- API server ---
	apiServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.HTTPHandler(router, invoker, obs),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Millisecond,
	}
	go func() {
		zapLog.Info("API server listening", zap.Int("port", cfg.Server.Port))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("api server failed", zap.Error(err))
		}
	}()

	// --- Wait for shutdown signal ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	zapLog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("api server shutdown failed", zap.Error(err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("metrics server shutdown failed", zap.Error(err))
	}
	zapLog.Info("Shutdown complete")
}

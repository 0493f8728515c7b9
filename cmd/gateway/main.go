// cmd/gateway/main.go
package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"dashboard-gateway/internal/common/config"
	"dashboard-gateway/internal/common/database"
	"dashboard-gateway/internal/common/logger"
	"dashboard-gateway/internal/common/observability"
	"dashboard-gateway/internal/fallback"
	"dashboard-gateway/internal/filter"
	"dashboard-gateway/internal/gateway"
	"dashboard-gateway/internal/records"
	"dashboard-gateway/internal/upstream"
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

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func main() {
	configPath := flag.String("config", "", "path to a config file (defaults to configs/config.yaml)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting dashboard gateway...",
		zap.String("environment", cfg.App.Environment),
		zap.String("recordSource", cfg.Records.Source),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	client, err := upstream.NewClient(upstream.Options{
		Timeout:          config.GetDuration(cfg.Upstreams.Timeout),
		MaxResponseBytes: cfg.Upstreams.MaxResponseBytes,
		CAFile:           cfg.Upstreams.CAFile,
		Logger:           log.WithFields(map[string]interface{}{"component": "upstream"}),
	})
	if err != nil {
		zapLog.Fatal("upstream client init failed", zap.Error(err))
	}

	clients, closeClients := connectRecordStore(ctx, cfg, zapLog)
	defer closeClients()

	source, err := records.New(cfg.Records, clients, log)
	if err != nil {
		zapLog.Fatal("record source init failed", zap.Error(err))
	}
	collection, err := source.LoadAllRecords(ctx)
	if err != nil {
		zapLog.Fatal("record collection load failed", zap.Error(err))
	}
	zapLog.Info("Record collection loaded", zap.Int("records", len(collection)))

	gw, err := gateway.New(gateway.Deps{
		Config:        cfg,
		Upstream:      client,
		Catalog:       fallback.NewCatalog(time.Now()),
		Engine:        filter.NewEngine(log, time.Now, cfg.App.Location()),
		Records:       collection,
		Logger:        log,
		Observability: obs,
	})
	if err != nil {
		zapLog.Fatal("route table rejected", zap.Error(err))
	}

	for _, route := range gw.Routes() {
		zapLog.Debug("Route registered",
			zap.String("query", string(route.Query)),
			zap.String("method", route.Method),
			zap.String("pattern", route.Pattern),
			zap.String("strategy", string(route.Strategy)),
		)
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      gw.Router(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("Gateway listening",
			zap.String("addr", server.Addr),
			zap.Bool("tls", cfg.Server.TLSEnabled()),
		)
		var err error
		if cfg.Server.TLSEnabled() {
			err = server.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	zapLog.Info("Shutdown signal received, draining connections...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("graceful shutdown failed", zap.Error(err))
	}
	zapLog.Info("Gateway stopped")
}

// connectRecordStore opens only the store the configured record source
// reads from.
func connectRecordStore(ctx context.Context, cfg *config.Config, zapLog *zap.Logger) (records.Clients, func()) {
	var clients records.Clients
	closer := func() {}

	switch cfg.Records.Source {
	case records.SourcePostgres:
		var pg *database.PostgresClient
		err := retryWithBackoff(func() error {
			var err error
			pg, err = database.ConnectPostgres(ctx, cfg.Database.Postgres)
			return err
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		zapLog.Info("PostgreSQL connected successfully")
		clients.Postgres = pg.DB
		closer = func() { _ = pg.Close() }

	case records.SourceRedis:
		rc := database.NewRedis(cfg.Database.Redis)
		err := retryWithBackoff(func() error {
			return rc.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		zapLog.Info("Redis connected successfully")
		clients.Redis = rc.Client
		closer = func() { _ = rc.Close() }

	case records.SourceElasticsearch:
		var es *database.ElasticsearchClient
		err := retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")
		clients.Elasticsearch = es.Client
	}

	return clients, closer
}

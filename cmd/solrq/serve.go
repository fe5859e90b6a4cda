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

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/solrq/internal/config"
	"github.com/kailas-cloud/solrq/internal/domain/setup"
	logpkg "github.com/kailas-cloud/solrq/internal/logger"
	"github.com/kailas-cloud/solrq/internal/metrics"
	"github.com/kailas-cloud/solrq/internal/repository/redisload"
	"github.com/kailas-cloud/solrq/internal/repository/sqlload"
	chiTransport "github.com/kailas-cloud/solrq/internal/transport/chi"
	"github.com/kailas-cloud/solrq/internal/transport/solr"
	healthuc "github.com/kailas-cloud/solrq/internal/usecase/health"
	searchuc "github.com/kailas-cloud/solrq/internal/usecase/search"
	"github.com/kailas-cloud/solrq/internal/version"
)

func newServeCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the search HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := rootOpts.load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger, err := logpkg.NewLogger(rootOpts.Env, logpkg.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()
			return serve(cmd.Context(), cfg, rootOpts.Env, logger)
		},
	}
}

// dataStore is the instance store behind every class accessor.
type dataStore struct {
	accessors setup.AccessorFunc
	pinger    healthuc.Pinger
	close     func()
}

func openDataStore(ctx context.Context, cfg config.DatabaseConfig, classes []setup.Declaration) (*dataStore, error) {
	switch cfg.Driver {
	case "redis":
		store, err := redisload.NewStore(redisload.Config{
			Addrs:     cfg.Addrs,
			Password:  cfg.Password,
			KeyPrefix: cfg.KeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
			store.Close()
			return nil, err
		}
		return &dataStore{
			accessors: func(className string) setup.DataAccessor { return store.Accessor(className) },
			pinger:    store,
			close:     store.Close,
		}, nil
	case "sqlite":
		store, err := sqlload.Open(cfg.DSN)
		if err != nil {
			return nil, err
		}
		byClass := make(map[string]*sqlload.Accessor, len(classes))
		for _, d := range classes {
			acc, err := store.Accessor(d.Class, cfg.Tables[d.Class])
			if err != nil {
				_ = store.Close()
				return nil, err
			}
			byClass[d.Class] = acc
		}
		return &dataStore{
			accessors: func(className string) setup.DataAccessor {
				if acc, ok := byClass[className]; ok {
					return acc
				}
				return nil
			},
			pinger: store,
			close:  func() { _ = store.Close() },
		}, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func serve(ctx context.Context, cfg config.Config, env string, logger *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger.Info("Starting solrq API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("solr_url", cfg.Solr.URL),
		zap.String("solr_core", cfg.Solr.Core),
		zap.String("db_driver", cfg.Database.Driver),
	)

	data, err := openDataStore(ctx, cfg.Database, cfg.Classes)
	if err != nil {
		return fmt.Errorf("data store: %w", err)
	}
	defer data.close()
	logger.Info("Connected to data store")

	registry, err := cfg.Registry(data.accessors)
	if err != nil {
		return err
	}

	// Register metrics explicitly (no init())
	metrics.RegisterSearchMetrics()
	metrics.RegisterHTTPMetrics()

	client, err := newSolrClient(cfg.Solr, logger)
	if err != nil {
		return err
	}
	if err := client.Ping(ctx); err != nil {
		logger.Warn("Solr not reachable at startup", zap.Error(err))
	}

	searchSvc := searchuc.New(client, registry).
		WithDefaultPerPage(cfg.Search.DefaultPerPage)
	healthSvc := healthuc.New(client, data.pinger)

	server := chiTransport.NewServer(searchSvc, healthSvc, logger,
		chiTransport.WithHighlightWrapper(cfg.Search.HighlightPre, cfg.Search.HighlightPost),
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-quit:
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}

func newSolrClient(cfg config.SolrConfig, logger *zap.Logger) (*solr.Client, error) {
	client, err := solr.New(solr.Config{
		URL:               cfg.URL,
		Core:              cfg.Core,
		Timeout:           time.Duration(cfg.TimeoutSec) * time.Second,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		Gzip:              cfg.Gzip,
		Logger:            logger,
	})
	if err != nil {
		return nil, fmt.Errorf("solr client: %w", err)
	}
	return client, nil
}

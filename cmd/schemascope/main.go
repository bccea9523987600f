// The main package for the schemascope executable.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/schemascope/schemascope/internal/analyzer"
	"github.com/schemascope/schemascope/internal/api"
	"github.com/schemascope/schemascope/internal/clock/system"
	"github.com/schemascope/schemascope/internal/config"
	"github.com/schemascope/schemascope/internal/crawler"
	"github.com/schemascope/schemascope/internal/database"
	"github.com/schemascope/schemascope/internal/discovery"
	"github.com/schemascope/schemascope/internal/extract"
	"github.com/schemascope/schemascope/internal/id/uuid"
	"github.com/schemascope/schemascope/internal/logging"
	"github.com/schemascope/schemascope/internal/metrics"
	"github.com/schemascope/schemascope/internal/publisher"
	pubsubpublisher "github.com/schemascope/schemascope/internal/publisher/pubsub"
	"github.com/schemascope/schemascope/internal/renderer"
	"github.com/schemascope/schemascope/internal/storage"
	"github.com/schemascope/schemascope/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "schemascope: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "logger sync: %v\n", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	provider, err := newStorageProvider(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	logger.Info("storage provider ready", zap.String("provider", cfg.Storage.Provider))
	results := store.NewResultStore(provider, logger.Named("store"))

	var archive database.Archive = database.NoOpArchive{}
	if cfg.DB.DSN != "" {
		pg, err := database.NewPostgresArchive(ctx, database.PostgresConfig{
			DSN:      cfg.DB.DSN,
			MaxConns: cfg.DB.MaxConns,
			MinConns: cfg.DB.MinConns,
		})
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		archive = pg
		logger.Info("scan archive connected")
	}
	defer archive.Close()

	var events publisher.Publisher = publisher.NoOp{}
	if cfg.Scan.Topic != "" {
		ps, err := pubsubpublisher.New(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicName)
		if err != nil {
			return fmt.Errorf("connect pubsub: %w", err)
		}
		defer func() {
			if err := ps.Close(); err != nil {
				logger.Warn("pubsub close failed", zap.Error(err))
			}
		}()
		events = ps
		logger.Info("event publisher connected", zap.String("topic", cfg.PubSub.TopicName))
	}

	rend, err := renderer.New(renderer.Config{
		UserAgent:      cfg.Scan.UserAgent,
		Timeout:        cfg.RenderTimeout(),
		MaxConcurrency: cfg.Render.MaxParallel,
		DomainQPS:      cfg.Render.DomainQPS,
		SettleDelay:    cfg.SettleDelay(),
	}, logger.Named("renderer"))
	if err != nil {
		return fmt.Errorf("init renderer: %w", err)
	}

	disc := discovery.New(discovery.Config{
		UserAgent: cfg.Scan.UserAgent,
	}, logger.Named("discovery"))

	engine := crawler.NewEngine(rend, disc, extract.New(logger.Named("extract")), logger.Named("crawler"))

	anlz := analyzer.New(analyzer.Deps{
		Crawler: engine,
		Results: results,
		Archive: archive,
		Events:  events,
		IDs:     uuid.New(),
		Clock:   system.New(),
		Logger:  logger.Named("analyzer"),
		Topic:   cfg.Scan.Topic,
		Defaults: crawler.Options{
			MaxPages:       cfg.Scan.MaxPages,
			MaxConcurrency: cfg.Scan.MaxConcurrency,
			CrawlDelay:     cfg.CrawlDelay(),
			RenderTimeout:  cfg.RenderTimeout(),
			LinksPerPage:   cfg.Scan.LinksPerPage,
		},
	})

	apiServer := api.NewServer(anlz, logger.Named("api"), cfg.RequestTimeout())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	if err := rend.Close(shutdownCtx); err != nil {
		logger.Warn("renderer close failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

func newStorageProvider(ctx context.Context, cfg config.Config) (storage.Provider, error) {
	switch cfg.Storage.Provider {
	case "local":
		return storage.NewLocalProvider(cfg.Storage.ScansDir)
	case "gcs":
		return storage.NewGCSProvider(ctx, cfg.Storage.GCSBucket)
	case "memory":
		return storage.NewMemoryProvider(), nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
	}
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/time/rate"

	httpadapter "github.com/riverwatch/river-gauge-service/internal/adapter/http"
	kafkaadapter "github.com/riverwatch/river-gauge-service/internal/adapter/kafka"
	"github.com/riverwatch/river-gauge-service/internal/adapter/nwps"
	"github.com/riverwatch/river-gauge-service/internal/adapter/reach"
	"github.com/riverwatch/river-gauge-service/internal/adapter/usgs"
	"github.com/riverwatch/river-gauge-service/internal/catalog"
	"github.com/riverwatch/river-gauge-service/internal/config"
	"github.com/riverwatch/river-gauge-service/internal/domain"
	"github.com/riverwatch/river-gauge-service/internal/observability"
	"github.com/riverwatch/river-gauge-service/internal/series"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	usgsClient := usgs.NewClient(cfg.USGSBaseURL, cfg.RequestTimeout, logger)
	nwpsClient := nwps.NewClient(cfg.NWPSBaseURL, cfg.RequestTimeout, logger)

	// Reach lookup: primary catalog with secondary fallback, behind an LRU.
	primary := reach.NewClient("primary", cfg.ReachPrimaryURL, cfg.RequestTimeout, logger)
	var secondary *reach.Client
	if cfg.ReachSecondaryURL != "" {
		secondary = reach.NewClient("secondary", cfg.ReachSecondaryURL, cfg.RequestTimeout, logger)
	}
	var resolver domain.ReachResolver = reach.NewResolver(primary, secondary, metrics, logger)
	resolver = reach.NewCachedResolver(resolver, cfg.ReachCacheSize, metrics)

	limiter := rate.NewLimiter(rate.Every(cfg.FetchInterval), 1)
	builder := catalog.NewBuilder(usgsClient, nwpsClient, cfg.FetchConcurrency, limiter, metrics, logger)

	// Catalog publishing (feature-flagged via KAFKA_ENABLED).
	var publisher *kafkaadapter.Publisher
	var sitePublisher catalog.SitePublisher
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg, logger)
		sitePublisher = publisher
		metrics.CatalogPublished.Set(1)
		logger.Info("catalog publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	} else {
		metrics.CatalogPublished.Set(0)
		logger.Info("catalog publishing disabled")
	}

	coordinator := catalog.NewCoordinator(builder, sitePublisher, metrics, logger)
	engine := series.NewEngine(
		usgsClient,
		nwpsClient,
		resolver,
		cfg.HistoryWindow,
		cfg.NowcastRadius,
		cfg.NowcastHorizon,
		metrics,
		logger,
	)

	srv := httpadapter.NewServer(cfg.HTTPAddr, coordinator, engine, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Initial bulk load.
	go func() {
		if _, ok := coordinator.LoadAll(ctx); !ok {
			logger.Warn("initial bulk load rejected")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

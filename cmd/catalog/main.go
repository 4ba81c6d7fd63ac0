package main

import (
	"context"
	"database/sql"
	"strconv"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"APIHub/internal/catalog"
	"APIHub/internal/config"
	"APIHub/pkg/kit"
)

func main() {
	service := "catalog"

	cfg, err := config.Load()
	if err != nil {
		boot := kit.NewLogger(service, "info")
		boot.Fatal("load config failed", zap.Error(err))
	}

	log := kit.NewLogger(service, cfg.Logging.Level)
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Data.LoadTimeout)
	defer cancel()

	src, closeSrc, err := openSource(ctx, cfg.Data)
	if err != nil {
		log.Fatal("open data source failed", zap.Error(err), zap.String("source", cfg.Data.Source))
	}

	cat, err := catalog.Load(ctx, src, log)
	closeSrc()
	if err != nil {
		log.Fatal("load catalog failed", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	catalog.RegisterMetrics(reg, cat)

	if cfg.Metrics.Enabled && cfg.Metrics.Token == "" {
		log.Warn("metrics enabled without METRICS_TOKEN; /metrics will answer 403")
	}

	s := &catalog.Server{
		Catalog:       cat,
		Log:           log,
		FeaturedLimit: cfg.Catalog.FeaturedLimit,
	}

	h := catalog.NewHandler(s, catalog.HTTPDeps{
		Log:               log,
		Service:           service,
		Registry:          reg,
		MetricsEnabled:    cfg.Metrics.Enabled,
		MetricsToken:      cfg.Metrics.Token,
		CORSOrigins:       cfg.Security.CORSOrigins,
		RateLimitRequests: cfg.Security.RateLimitRequests,
		RateLimitWindow:   cfg.Security.RateLimitWindow,
	})

	addr := ":" + strconv.Itoa(cfg.Server.Port)
	timeouts := kit.ServerTimeouts{
		ReadHeader: cfg.Server.ReadHeaderTimeout,
		Shutdown:   cfg.Server.ShutdownTimeout,
	}
	if err := kit.RunHTTPServer(addr, h, log, timeouts); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

// openSource returns the configured source and a func releasing whatever
// it holds; the catalog is fully in memory once loaded.
func openSource(ctx context.Context, cfg config.DataConfig) (catalog.Source, func(), error) {
	noop := func() {}

	switch cfg.Source {
	case config.SourceFile:
		return catalog.FileSource{Path: cfg.Path}, noop, nil

	case config.SourcePostgres:
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		src := catalog.NewPostgresSource(db)
		if err := src.Ping(ctx); err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		return src, func() { _ = db.Close() }, nil

	default:
		return catalog.EmbeddedSource{}, noop, nil
	}
}

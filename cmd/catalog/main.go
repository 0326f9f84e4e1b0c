package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"ProductStore/internal/auth"
	"ProductStore/internal/catalog"
	"ProductStore/internal/config"
	"ProductStore/pkg/kit"
)

const service = "catalog"

func main() {
	configFile := flag.String("config", "config.yaml", "optional YAML config file")
	envFile := flag.String("env-file", ".env", "optional dotenv file")
	flag.Parse()

	cfg, err := config.Load(config.Options{File: *configFile, EnvFile: *envFile})
	if err != nil {
		kit.NewLogger(service, "info").Fatal("config", zap.Error(err))
	}

	log := kit.NewLogger(service, cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	store, closeStore, err := openStore(ctx, cfg.Store, log)
	if err != nil {
		log.Fatal("open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer closeStore()

	tokens := auth.NewTokenMaker(cfg.Auth.Secret)
	authSrv := &auth.Server{
		Log:   log,
		Admin: auth.NewAdmin(cfg.Auth.Email, cfg.Auth.Hash),
		JWT:   tokens,
		TTL:   cfg.Auth.TTL,
	}
	if !authSrv.Admin.Enabled() {
		log.Warn("no admin configured, product changes are rejected")
	}

	s := &catalog.Server{
		Store: catalog.Instrument(store, reg),
		Log:   log,
		Guard: authSrv.Guard(),
	}

	h := catalog.NewHandler(s, catalog.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsToken:   cfg.Metrics.Token,
		Extra:          func(r chi.Router) { authSrv.Mount(r) },
	})

	if err := kit.RunHTTPServer(ctx, cfg.Addr(), h, cfg.HTTP.Shutdown, log); err != nil {
		log.Error("http server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg config.StoreConfig, log *zap.Logger) (catalog.Store, func(), error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return catalog.NewMemStore(log), func() {}, nil

	case config.DriverPostgres:
		db, err := catalog.OpenPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		s := catalog.NewPostgresStore(db, log)
		if err := s.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return s, func() { _ = db.Close() }, nil

	default:
		s, err := catalog.OpenFileStore(cfg.Path, log)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	}
}

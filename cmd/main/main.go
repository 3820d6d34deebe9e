package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Houeta/ems-roster/internal/client"
	"github.com/Houeta/ems-roster/internal/config"
	"github.com/Houeta/ems-roster/internal/metrics"
	"github.com/Houeta/ems-roster/internal/repository"
	"github.com/Houeta/ems-roster/internal/server"
	"github.com/Houeta/ems-roster/internal/services/employees"
	"github.com/Houeta/ems-roster/internal/store"
	"github.com/Houeta/ems-roster/internal/store/contents"
	"github.com/Houeta/ems-roster/internal/store/memory"
)

const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

// rosterStore is a document store that can also be health-checked.
type rosterStore interface {
	store.DocumentStore
	store.Pinger
}

// main is the entry point of the application.
func main() {
	var wgr sync.WaitGroup
	delta := 2

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad()

	logger := setupLogger(cfg.Env)

	// Create a separate registry for metrics with exemplar
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	docStore, closeStore := setupStore(cfg, logger, appMetrics)
	defer closeStore()

	staff := employees.NewStaff(logger, docStore, appMetrics,
		employees.WithConflictRetries(cfg.Store.ConflictRetries))

	if cfg.Env != envLocal {
		gin.SetMode(gin.ReleaseMode)
	}
	router := server.NewRouter(logger, staff, cfg.HTTP.RequestTimeout)
	healthChecker := server.NewHealthChecker(logger, map[string]store.Pinger{cfg.Store.Backend: docStore})

	wgr.Add(delta)

	go func() {
		defer wgr.Done()
		server.StartMonitoringServer(ctx, logger, reg, healthChecker, cfg.Monitoring.Port)
	}()

	go func() {
		defer wgr.Done()
		server.StartAPIServer(ctx, logger, router, cfg.HTTP.Address)
		// the API is the reason to run; stop everything when it exits
		stop()
	}()

	logger.InfoContext(ctx, "Application started. Press Ctrl+C to stop.", "backend", cfg.Store.Backend)

	wgr.Wait()

	logger.InfoContext(context.Background(), "Application stopped gracefully...")
}

// setupStore builds the document store selected by the configuration.
func setupStore(cfg *config.Config, logger *slog.Logger, appMetrics *metrics.Metrics) (rosterStore, func()) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		dtb, err := repository.NewDatabase(cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User,
			cfg.Postgres.Password, cfg.Postgres.Name, cfg.Postgres.SSLMode)
		if err != nil {
			log.Fatalf("Failed to connect to DB: %v", err)
		}

		return repository.NewDocumentRepository(dtb, appMetrics, repository.DefaultDocument), dtb.Close
	case config.BackendMemory:
		logger.Warn("Using the in-memory store, the roster is lost on exit")

		return memory.New(), func() {}
	default:
		httpClient := client.CreateHTTPClient(logger, cfg.Contents.Token, cfg.Contents.APIURL, cfg.Contents.Timeout)
		docStore, err := contents.New(logger, httpClient, appMetrics, contents.Options{
			APIURL: cfg.Contents.APIURL,
			Owner:  cfg.Contents.Owner,
			Repo:   cfg.Contents.Repo,
			Path:   cfg.Contents.Path,
			Branch: cfg.Contents.Branch,
		})
		if err != nil {
			log.Fatalf("Failed to set up the content API store: %v", err)
		}

		return docStore, httpClient.CloseIdleConnections
	}
}

// setupLogger initializes and returns a logger based on the environment provided.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:       slog.LevelWarn,
				ReplaceAttr: dropTime,
			}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:       slog.LevelError,
				ReplaceAttr: dropTime,
			}),
		)

		log.Error(
			"The env parameter was not specified, or was invalid. Logging will be minimal, by default." +
				" Please specify the value of `env`: local, development, production")
	}

	return log
}

func dropTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}

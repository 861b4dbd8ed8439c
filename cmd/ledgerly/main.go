package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Vedant6800/ledgerly/internal/cli"
	"github.com/Vedant6800/ledgerly/internal/config"
	"github.com/Vedant6800/ledgerly/internal/events"
	apphttp "github.com/Vedant6800/ledgerly/internal/http"
	"github.com/Vedant6800/ledgerly/internal/ledger"
	"github.com/Vedant6800/ledgerly/internal/log"
	"github.com/Vedant6800/ledgerly/internal/store"
	githubstore "github.com/Vedant6800/ledgerly/internal/store/github"
	"github.com/Vedant6800/ledgerly/internal/store/memory"
	sqlitestore "github.com/Vedant6800/ledgerly/internal/store/sqlite"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("ledgerly")
	cfg := cli.LoadAndValidateConfig(logger)

	docStore, cleanup := buildStore(logger, cfg)
	defer cleanup()

	// Ledger change events are optional. A broken broker should never keep
	// users from recording transactions.
	var eventsClient *events.Client
	if cfg.AMQPURL != "" {
		ec, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Events disabled, AMQP unavailable", "error", err)
		} else {
			eventsClient = ec
			defer eventsClient.Close()
			logger.Info("Events client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	manager := ledger.New(docStore, eventsClient)
	srv := apphttp.NewServer(":"+cfg.Port, manager)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting ledgerly server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

// buildStore selects the document backend from configuration. The returned
// cleanup is a no-op for backends without resources to release.
func buildStore(logger *log.Logger, cfg *config.Config) (store.DocumentStore, func()) {
	switch cfg.DataBackend {
	case "github":
		client, err := githubstore.New(githubstore.Config{
			Token:   cfg.GitHubToken,
			Owner:   cfg.GitHubOwner,
			Repo:    cfg.GitHubRepo,
			Branch:  cfg.GitHubBranch,
			BaseURL: cfg.GitHubAPIURL,
		})
		if err != nil {
			logger.Error("Failed to initialize GitHub store", "error", err, "owner", cfg.GitHubOwner, "repo", cfg.GitHubRepo)
			os.Exit(1)
		}
		logger.Info("Initialized GitHub backend", "owner", cfg.GitHubOwner, "repo", cfg.GitHubRepo, "branch", cfg.GitHubBranch)
		return client, func() {}
	case "sqlite":
		db, err := sqlitestore.New(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite store", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		logger.Info("Initialized SQLite backend", "path", cfg.SQLiteDBPath)
		return db, func() { _ = db.Close() }
	default:
		logger.Info("Initialized memory backend")
		return memory.New(), func() {}
	}
}

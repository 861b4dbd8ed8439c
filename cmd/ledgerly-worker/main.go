package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Vedant6800/ledgerly/internal/cli"
	"github.com/Vedant6800/ledgerly/internal/events"
	githubstore "github.com/Vedant6800/ledgerly/internal/store/github"
	sqlitestore "github.com/Vedant6800/ledgerly/internal/store/sqlite"
	"github.com/Vedant6800/ledgerly/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("ledgerly-worker")

	logger.Info("Starting ledgerly-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	// The worker always mirrors the remote GitHub ledger into SQLite, so it
	// needs the GitHub credentials regardless of the server's DATA_BACKEND.
	source, err := githubstore.New(githubstore.Config{
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

	mirror, err := sqlitestore.New(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite mirror", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer mirror.Close()

	eventsClient, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer eventsClient.Close()

	mirrorWorker := worker.NewMirrorWorker(source, mirror)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// On startup, catch up on the current month in case events were missed
	// while the worker was down.
	now := time.Now()
	startupCtx, cancel := context.WithTimeout(ctx, time.Minute)
	if _, err := mirrorWorker.MirrorMonth(startupCtx, now.Year(), now.Month()); err != nil {
		logger.Error("Startup mirror failed", "error", err)
		// Keep running, the event stream will repair the mirror.
	}
	cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := eventsClient.ConsumeLedgerEvents(gctx, func(event *events.LedgerEvent) error {
			return mirrorWorker.HandleLedgerEvent(gctx, event)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Event consumption failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

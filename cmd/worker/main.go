package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/resetwatch/resetwatch/internal/redis"
	"github.com/resetwatch/resetwatch/internal/setup"
	"github.com/resetwatch/resetwatch/internal/worker/core"
	"github.com/resetwatch/resetwatch/internal/worker/scan"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const (
	// WorkerLogDir specifies where worker log files are stored.
	WorkerLogDir = "logs/worker_logs"

	// ScanWorkerType identifies the scan worker in status reporting.
	ScanWorkerType = "scan"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "worker",
		Usage: "Start the resetwatch worker",
		Commands: []*cli.Command{
			{
				Name:  "scan",
				Usage: "Start the recurring nation scan worker",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "bootstrap",
						Value: true,
						Usage: "Import the nation catalog first when it is empty",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return runScanWorker(ctx, c.Bool("bootstrap"))
				},
			},
			{
				Name:  "import",
				Usage: "Run a one-shot full nation catalog import",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return runImport(ctx)
				},
			},
			{
				Name:  "status",
				Usage: "Show worker heartbeats and storage statistics",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return runStatus(ctx)
				},
			},
		},
	}

	return app.Run(context.Background(), os.Args)
}

// runScanWorker starts the scan schedule and blocks until interrupted.
func runScanWorker(ctx context.Context, bootstrap bool) error {
	app, err := setup.InitializeApp(ctx, WorkerLogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	statusClient, err := app.RedisManager.GetClient(redis.WorkerStatusDBIndex)
	if err != nil {
		return fmt.Errorf("failed to get status Redis client: %w", err)
	}

	reporter := core.NewStatusReporter(statusClient, ScanWorkerType, app.Logger)
	reporter.Start(ctx)
	defer reporter.Stop()

	worker := scan.New(app.ScanService, app.PNWClient, reporter, workerOptions(app), app.Logger)

	if bootstrap {
		if err := worker.BootstrapIfEmpty(ctx); err != nil {
			app.Logger.Error("Bootstrap import failed, continuing with existing catalog", zap.Error(err))
		}
	}

	worker.Start(ctx)

	<-ctx.Done()
	app.Logger.Info("Shutdown signal received, stopping scan worker")
	worker.Stop()

	return nil
}

// runImport walks the full nation catalog once and exits.
func runImport(ctx context.Context) error {
	app, err := setup.InitializeApp(ctx, WorkerLogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	worker := scan.New(app.ScanService, app.PNWClient, nil, workerOptions(app), app.Logger)

	imported, err := worker.ImportCatalog(ctx)
	if err != nil {
		return fmt.Errorf("catalog import failed after %d nations: %w", imported, err)
	}

	app.Logger.Info("Catalog import finished", zap.Int("nations", imported))

	return nil
}

// runStatus prints current worker heartbeats and storage statistics.
func runStatus(ctx context.Context) error {
	app, err := setup.InitializeApp(ctx, WorkerLogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup()

	statusClient, err := app.RedisManager.GetClient(redis.WorkerStatusDBIndex)
	if err != nil {
		return fmt.Errorf("failed to get status Redis client: %w", err)
	}

	monitor := core.NewMonitor(statusClient, app.Logger)

	statuses, err := monitor.GetAllStatuses(ctx)
	if err != nil {
		return fmt.Errorf("failed to query worker statuses: %w", err)
	}

	if len(statuses) == 0 {
		fmt.Println("No active workers")
	}

	for _, status := range statuses {
		health := "healthy"
		if !status.IsHealthy {
			health = "unhealthy"
		}

		fmt.Printf("%s %s  %s  %d%%  %s  last seen %s\n",
			status.WorkerType, status.WorkerID, health, status.Progress,
			status.CurrentTask, status.LastSeen.Format(time.RFC3339))
	}

	stats, err := app.ScanService.GetStats(ctx, 24*time.Hour)
	if err != nil {
		return fmt.Errorf("failed to query storage stats: %w", err)
	}

	fmt.Printf("\nnations: %d  resets: %d  scans (24h): %d\n",
		stats.Nations, stats.Resets, stats.RecentScans)

	return nil
}

// workerOptions maps worker configuration onto scan options.
func workerOptions(app *setup.App) scan.Options {
	cfg := app.Config.Worker

	return scan.Options{
		Interval:        time.Duration(cfg.ScanInterval) * time.Minute,
		CandidateWindow: time.Duration(cfg.CandidateWindowDays) * 24 * time.Hour,
		CandidateLimit:  cfg.CandidateLimit,
		ImportPageSize:  cfg.ImportPageSize,
	}
}

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"example.com/backstage/services/challan/internal/backup"
	"example.com/backstage/services/challan/internal/metrics"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker that periodically backs up the challan register`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := newApp(cfg, "challan-worker")
	if err != nil {
		return err
	}
	defer a.Close()

	sink, err := backup.NewSink(ctx, cfg.Backup)
	if err != nil {
		return err
	}
	defer sink.Close()

	runner := backup.NewRunner(a.service, sink)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Dur("interval", cfg.Backup.Interval).Msg("Starting register backup job")

		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.Backup.Interval),
			gocron.NewTask(func() {
				runBackup(ctx, runner, a.metrics)
			}),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return err
		}

		scheduler.Start()

		// Wait for context cancellation
		<-ctx.Done()

		return scheduler.Shutdown()
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}

// runBackup runs one backup, logging failures instead of returning them
func runBackup(ctx context.Context, runner *backup.Runner, collector *metrics.Metrics) {
	if _, err := runner.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to back up challan register")
		return
	}
	collector.IncrementCounter(metrics.CounterBackups)
}

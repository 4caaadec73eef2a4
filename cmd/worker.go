package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"example.com/arogyayaan/replenishment/internal/services"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker that runs the replenishment cycle on a schedule`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	app, err := bootstrap(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	cycle := services.NewReplenishmentCycle(app.transfers, cfg.Replenishment, app.metrics)

	// Create an error group to manage goroutines
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Dur("interval", cfg.Replenishment.Schedule).Msg("Starting replenishment scheduler")

		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		// Overlapping cycles would race on the same alerts
		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.Replenishment.Schedule),
			gocron.NewTask(func() {
				if _, err := cycle.Run(ctx); err != nil {
					log.Error().Err(err).Msg("Replenishment cycle failed")
				}
			}),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
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

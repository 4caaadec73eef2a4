package cmd

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"example.com/arogyayaan/replenishment/internal/services"

	"github.com/spf13/cobra"
)

var forecastDays int

var replenishCmd = &cobra.Command{
	Use:   "replenish",
	Short: "Run one replenishment cycle",
	Long:  `Scan for forecast stock-outs once, save a solution card for each alert with a donor and print the report`,
	RunE:  runReplenish,
}

func init() {
	replenishCmd.Flags().IntVar(&forecastDays, "days", 0, "forecast horizon in days (defaults to replenishment.forecast_days)")
	rootCmd.AddCommand(replenishCmd)
}

func runReplenish(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if forecastDays > 0 {
		cfg.Replenishment.ForecastDays = forecastDays
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	app, err := bootstrap(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	report, err := services.NewReplenishmentCycle(app.transfers, cfg.Replenishment, app.metrics).Run(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

package cmd

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rodriseer/surfseer/internal/config"
	"github.com/rodriseer/surfseer/internal/forecast"
	"github.com/rodriseer/surfseer/internal/upstream"
)

var checkCmd = &cobra.Command{
	Use:   "check [spot-id]",
	Short: "Fetch and print a one-shot forecast report without starting the daemon",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	setupLogging()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	// One-shot invocations skip the shared store and go straight upstream.
	svc, err := forecast.NewService(forecast.Options{
		Spots:   spotsFromConfig(cfg.Spots),
		Marine:  upstream.NewStormglassClient(cfg.Upstream.StormglassKey, slog.Default()),
		Temps:   upstream.NewOpenMeteoClient(),
		Tides:   upstream.NewTideClient(),
		TTL:     cfg.Cache.TTL,
		TideTTL: cfg.Cache.TideTTL,
		Logger:  slog.Default(),
	})
	if err != nil {
		return err
	}

	spotID := svc.DefaultSpot().ID
	if len(args) == 1 {
		spotID = args[0]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rep, err := svc.Report(ctx, spotID, true)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rodriseer/surfseer/internal/api"
	"github.com/rodriseer/surfseer/internal/config"
	"github.com/rodriseer/surfseer/internal/forecast"
	"github.com/rodriseer/surfseer/internal/observability"
	"github.com/rodriseer/surfseer/internal/scheduler"
	"github.com/rodriseer/surfseer/internal/upstream"
)

var (
	listenAddr    string
	storageDriver string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the surfseer daemon (default command)",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "HTTP listen address (overrides config)")
	serveCmd.Flags().StringVar(&storageDriver, "storage-driver", "", "storage driver (overrides config)")
	rootCmd.AddCommand(serveCmd)

	// Make serve the default command.
	rootCmd.RunE = runServe
}

func runServe(cmd *cobra.Command, args []string) error {
	setupLogging()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Apply flag overrides.
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	if storageDriver != "" {
		cfg.Storage.Driver = storageDriver
	}

	slog.Info("starting surfseer",
		"listen_addr", cfg.ListenAddr,
		"storage_driver", cfg.Storage.Driver,
		"spots", len(cfg.Spots),
		"cache_ttl", cfg.Cache.TTL,
	)

	// Open the shared cache store. Opening runs pending migrations.
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck

	slog.Info("database ready", "driver", cfg.Storage.Driver, "dsn", redactDSN(cfg.DSN()))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metrics := observability.NewMetrics()

	svc, err := forecast.NewService(forecast.Options{
		Spots:   spotsFromConfig(cfg.Spots),
		Marine:  upstream.NewStormglassClient(cfg.Upstream.StormglassKey, slog.Default()),
		Temps:   upstream.NewOpenMeteoClient(),
		Tides:   upstream.NewTideClient(),
		Shared:  s,
		TTL:     cfg.Cache.TTL,
		TideTTL: cfg.Cache.TideTTL,
		Metrics: metrics,
		Logger:  slog.Default(),
	})
	if err != nil {
		return err
	}

	srv := api.NewServer(svc, metrics, slog.Default())
	srv.SetVersion(Version)

	slog.Info("surfseer ready", "addr", cfg.ListenAddr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(gctx, cfg.ListenAddr) })
	if cfg.Prefetch.Enabled {
		warmer := scheduler.NewWarmer(svc, cfg.Prefetch.Interval, slog.Default())
		g.Go(func() error { return warmer.Start(gctx) })
		slog.Info("prefetch warmer enabled", "interval", cfg.Prefetch.Interval)
	}

	waitErr := g.Wait()
	if waitErr != nil && !errors.Is(waitErr, context.Canceled) {
		slog.Error("surfseer exited with error", "error", waitErr)
	}

	// Always run graceful cleanup, even on error.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)

	slog.Info("surfseer shutdown complete")
	if waitErr != nil && !errors.Is(waitErr, context.Canceled) {
		return waitErr
	}
	return nil
}

func spotsFromConfig(spots []config.SpotConfig) []forecast.Spot {
	out := make([]forecast.Spot, 0, len(spots))
	for _, sc := range spots {
		out = append(out, forecast.Spot{
			ID:          sc.ID,
			Name:        sc.Name,
			Latitude:    sc.Latitude,
			Longitude:   sc.Longitude,
			FacingDeg:   sc.FacingDeg,
			TideStation: sc.TideStation,
			Beginner:    sc.Beginner,
		})
	}
	return out
}

func setupLogging() {
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	if logFormat == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// redactDSN masks the password in a PostgreSQL DSN for safe display.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return dsn
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	cfgFile   string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "surfseer",
	Short: "Surf forecast scoring and caching daemon",
	Long: `surfseer fetches marine weather, daily temperatures, and tide predictions
for configured surf spots, scores the conditions on a 1-10 scale, finds each
day's best two-hour window, and serves the results over a REST API backed by
an in-process and shared database cache.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format (text or json)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

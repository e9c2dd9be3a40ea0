// Command rhythm-features batch-extracts summary audio features for the
// rhythm training pipeline: it decodes audio files, computes spectral
// statistics, caches per-file results on disk, and exports a rounded JSON
// summary or serves the dataset over localhost HTTP.
package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"rhythm-features/internal/config"
)

var (
	flagSampleRate int
	flagCacheDir   string
	flagNoCache    bool
	flagWorkers    int
	flagVerbose    bool

	logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})

	rootCmd = &cobra.Command{
		Use:          "rhythm-features",
		Short:        "Extract and cache summary audio features",
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if flagVerbose {
				logger.SetLevel(log.DebugLevel)
			}
		},
	}
)

func init() {
	rootCmd.PersistentFlags().IntVar(&flagSampleRate, "sample-rate", 0, "target sample rate in Hz")
	rootCmd.PersistentFlags().StringVar(&flagCacheDir, "cache-dir", "", "directory for cached feature records")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "disable the on-disk feature cache")
	rootCmd.PersistentFlags().IntVar(&flagWorkers, "workers", 0, "number of parallel workers")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(processCmd, probeCmd, serveCmd)
}

// loadSettings resolves the configuration (defaults, YAML, environment) and
// applies any command-line flag overrides on top.
func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	settings, err := config.Load()
	if err != nil {
		return config.Settings{}, err
	}

	if cmd.Flags().Changed("sample-rate") && flagSampleRate > 0 {
		settings.SampleRate = flagSampleRate
	}
	if cmd.Flags().Changed("cache-dir") {
		settings.CacheDir = flagCacheDir
	}
	if flagNoCache {
		settings.UseCache = false
	}
	if cmd.Flags().Changed("workers") && flagWorkers > 0 {
		settings.Workers = flagWorkers
	}

	return settings, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Fatal(err)
	}
}

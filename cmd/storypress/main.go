package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"storypress/internal/config"
	"storypress/internal/logging"
)

var (
	// Global flags
	verbose bool
	cfgFile string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "storypress",
	Short: "storypress - bulk story publishing for iCraftStories",
	Long: `storypress drives a real browser session against the story
application to publish a local collection of stories in bulk: login,
document creation, text and coaching content, tags, and canvas images.

Stories live one per sub-directory under the configured stories root,
each with a story.json plus optional cover and page images.

Credentials and service keys are read from the environment
(STORYPRESS_EMAIL, STORYPRESS_PASSWORD, ...) or an optional
storypress.yaml; they are never baked into the binary.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A .env file is a convenience for local runs; absence is fine.
		_ = godotenv.Load()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err = logging.New(verbose, cfg.LogDir)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: storypress.yaml)")

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(runsCmd)
}

var loadedConfig *config.Config

// loadConfig reads configuration once per process.
func loadConfig() (*config.Config, error) {
	if loadedConfig != nil {
		return loadedConfig, nil
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	loadedConfig = cfg
	return cfg, nil
}

// signalContext returns a context cancelled on SIGINT/SIGTERM so an
// interrupted run still tears the browser down.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

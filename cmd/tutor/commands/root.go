// Package commands implements the tutor command line.
package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilofrakh/mostaqlproj1/internal/app"
	"github.com/kilofrakh/mostaqlproj1/internal/config"
	"github.com/kilofrakh/mostaqlproj1/internal/logging"
)

var (
	// Global flags
	logLevel  string
	logFormat string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "tutor",
	Short: "Arabic voice tutor",
	Long: `tutor runs the Arabic tutoring pipeline: speech-to-text, a tutor persona
that corrects or converses, and text-to-speech.

Configuration comes from the environment (and a .env file if present).

Examples:
  # Serve the HTTP and WebSocket API
  tutor serve

  # Talk to the tutor in the terminal
  tutor chat --tutor-name سارة

  # Transcribe a recording
  tutor transcribe recording.webm

  # Synthesize a sentence to a file
  tutor say "مرحبا بك" -o hello.mp3
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Command returns the root command for mounting into a parent CLI.
func Command() *cobra.Command {
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default $LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json (default $LOG_FORMAT)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "shorthand for --log-level debug")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(transcribeCmd)
	rootCmd.AddCommand(sayCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the environment and installs the process logger.
func loadConfig() (config.Config, *slog.Logger) {
	cfg := config.Load()
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	return cfg, logger
}

func newApp(ctx context.Context) (*app.App, error) {
	cfg, logger := loadConfig()
	return app.New(ctx, cfg, logger)
}

// Package main is the terminal front end of the persona chatbot.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/easeaico/utbot/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "utbot",
	Short: "Persona chatbot with a finance analysis mode",
	Long: `utbot talks to a hosted LLM through one of three personas.

Commands:
  chat    - Interactive chat (default)
  finance - Fetch daily stock data and print a summary report`,
	SilenceUsage: true,
	RunE:         runChat,
}

var logLevelFlag string

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "warn", "Log level written to stderr (debug, info, warn, error)")
	rootCmd.AddCommand(chatCmd, financeCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and routes slog to stderr so chat output on
// stdout stays clean.
func setup(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	_, envSet := os.LookupEnv("LOG_LEVEL")
	level, err := cliLogLevel(cfg, cmd.Flags().Changed("log-level"), envSet, logLevelFlag)
	if err != nil {
		return config.Config{}, err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return cfg, nil
}

// cliLogLevel picks --log-level when given, then LOG_LEVEL, then warn.
func cliLogLevel(cfg config.Config, flagSet, envSet bool, flagValue string) (slog.Level, error) {
	switch {
	case flagSet:
		var level slog.Level
		if err := level.UnmarshalText([]byte(flagValue)); err != nil {
			return 0, fmt.Errorf("invalid --log-level %q: %w", flagValue, err)
		}
		return level, nil
	case envSet:
		return cfg.LogLevel, nil
	default:
		return slog.LevelWarn, nil
	}
}

// Command console runs the vehicle bot against stdin/stdout for local testing.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"vehicle-bot/internal/config"
)

var (
	configPath string
	envFile    string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "vehicle-bot",
	Short: "Chat-driven vehicle registration lookup",
	Long: `vehicle-bot answers chat messages and looks up registered vehicles.

Provider settings come from a .env file (API_URL, API_BODY, COOKIES),
an optional YAML file given with --config, and the environment.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		if err := godotenv.Load(envFile); err != nil {
			if envFile != ".env" || !os.IsNotExist(err) {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with provider settings")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(lookupCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Lookup.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}


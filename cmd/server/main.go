package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yourusername/mediagrab-go/internal/app"
	"github.com/yourusername/mediagrab-go/internal/domain"
)

var (
	configPath string
	envFile    string
	rootCmd    = &cobra.Command{
		Use:   "mediagrab-server",
		Short: "MediaGrab server - authorized media download jobs",
		Long:  `Accepts download requests for YouTube and Instagram URLs, checks plan entitlements and fulfills admitted jobs in the background.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnvFile(envFile)
		},
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ./configs/config.yaml, $HOME/.mediagrab/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before configuration")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(planCmd)
}

// loadEnvFile loads KEY=VALUE pairs without overriding the real environment
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func loadConfig() (*domain.Config, error) {
	config, err := app.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return config, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Package cli wires the command line: the API server and the client commands
// that drive the synchronization store.
package cli

import (
	"apexfolio-bot-go/internal/config"
	"apexfolio-bot-go/internal/logger"
	"apexfolio-bot-go/internal/models"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type app struct {
	configPath string
	serverURL  string
	debug      bool

	cfg *models.Config
	log *zap.Logger
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "apexfolio",
		Short: "Apexfolio - trading bot dashboard service and client",
		Long: `Apexfolio serves the trading bot state over HTTP and provides client
commands to inspect the dashboard, trades and logs and to control the bot.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	rootCmd.AddCommand(newServeCmd(a))
	rootCmd.AddCommand(newDashboardCmd(a))
	rootCmd.AddCommand(newTradesCmd(a))
	rootCmd.AddCommand(newLogsCmd(a))
	rootCmd.AddCommand(newSettingsCmd(a))
	rootCmd.AddCommand(newStartCmd(a))
	rootCmd.AddCommand(newStopCmd(a))
	rootCmd.AddCommand(newReportCmd(a))

	// Global flags
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "config.json", "Configuration file path (JSON or YAML)")
	rootCmd.PersistentFlags().StringVar(&a.serverURL, "server", "", "API base URL for client commands")
	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")

	return rootCmd
}

func (a *app) init() error {
	// godotenv never overrides variables already set in the environment.
	envErr := godotenv.Load()

	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.serverURL != "" {
		cfg.Client.BaseURL = a.serverURL
	}
	if a.debug {
		cfg.Log.Level = "debug"
		cfg.Server.Mode = "debug"
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	a.cfg = cfg
	a.log = logger.InitLogger(cfg.Log)
	if envErr != nil {
		a.log.Debug("no .env file loaded, using process environment")
	}
	return nil
}

package cmd

import (
	"context"

	"blocklucky/config"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the blocklucky command tree
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "blocklucky",
		Short:         "Threshold-triggered lottery with a pluggable ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		ServeCmd(),
		MigrateCmd(),
		DeployCmd(),
		InfoCmd(),
		FundCmd(),
		BalanceCmd(),
		ResetCmd(),
		WithdrawCmd(),
		FairnessCmd(),
	)
	return root
}

// Execute runs the command named on the command line
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// loadConfig returns the global config and applies its logging settings
func loadConfig() *config.Config {
	cfg := config.Get()
	configureLogging(cfg)
	return cfg
}

func configureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

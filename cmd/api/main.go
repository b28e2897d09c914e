package main

import (
	"fmt"
	"os"

	"balance-ledger/config"
	"balance-ledger/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const flagConfig = "config"

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "balance-ledger: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "api",
		Short:         "Account balance ledger service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().String(flagConfig, "", "path to a YAML config file (optional, BAL_* env vars override it)")

	cmd.AddCommand(newServeCommand(), newMigrateCommand())
	return cmd
}

// loadRuntime reads the config named by --config and builds the process logger.
func loadRuntime(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	path, err := cmd.Root().PersistentFlags().GetString(flagConfig)
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}

	return cfg, logger.New(cfg.Log.Level, cfg.Log.Pretty), nil
}

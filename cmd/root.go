package cmd

import (
	"fmt"

	"gamecredits/config"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRootCommand creates the gamecredits command tree
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "gamecredits",
		Short:         "Game credit ledger with challenges, betting, loans and weekly stipends",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return configureLogging(config.Get())
		},
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newStipendsCommand())
	cmd.AddCommand(newLoansCommand())
	cmd.AddCommand(newLedgerCommand())

	return cmd
}

func configureLogging(cfg *config.Config) error {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	log.SetLevel(level)

	switch cfg.LogFormat {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q: must be text or json", cfg.LogFormat)
	}
	return nil
}

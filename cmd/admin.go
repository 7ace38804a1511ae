package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"gamecredits/config"
	"gamecredits/database"
	"gamecredits/events"
	"gamecredits/models"
	"gamecredits/repository"
	"gamecredits/service"

	"github.com/spf13/cobra"
)

// withFactory opens a connection for a one-shot command
func withFactory(ctx context.Context, fn func(service.UnitOfWorkFactory, *config.Config) error) error {
	cfg := config.Get()
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	return fn(repository.NewUnitOfWorkFactory(db, events.NewBus()), cfg)
}

func newStipendsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stipends",
		Short: "Weekly stipend administration",
	}

	var adminID int64
	grant := &cobra.Command{
		Use:   "grant",
		Short: "Grant the weekly stipend to every eligible player",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFactory(cmd.Context(), func(factory service.UnitOfWorkFactory, cfg *config.Config) error {
				stipends := service.NewStipendService(factory, cfg.StipendAmount, cfg.StipendInterval)
				now := time.Now().UTC()

				var run *models.StipendRun
				var err error
				if adminID > 0 {
					run, err = stipends.GrantWeeklyStipendsAs(cmd.Context(), adminID, now)
				} else {
					run, err = stipends.GrantWeeklyStipends(cmd.Context(), now)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d eligible, %d granted, %d skipped, %d failed, %d credits\n",
					run.ID, run.EligibleCount, run.GrantedCount, run.SkippedCount, run.FailedCount, run.TotalGranted)
				return nil
			})
		},
	}
	grant.Flags().Int64Var(&adminID, "admin", 0, "run on behalf of this admin player id")
	cmd.AddCommand(grant)

	return cmd
}

func newLoansCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loans",
		Short: "Loan administration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Mark funded loans past their due date as defaulted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFactory(cmd.Context(), func(factory service.UnitOfWorkFactory, cfg *config.Config) error {
				defaulted, err := service.NewLoanService(factory, cfg.MaxLoanDays).SweepDefaultedLoans(cmd.Context(), time.Now().UTC())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, loan := range defaulted {
					fmt.Fprintf(out, "loan %d defaulted (borrower %d, amount %d)\n", loan.ID, loan.BorrowerID, loan.Amount)
				}
				fmt.Fprintf(out, "%d loans defaulted\n", len(defaulted))
				return nil
			})
		},
	})

	return cmd
}

func newLedgerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger inspection",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "reconcile <playerID>",
		Short: "Check a player's balance against their ledger entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			playerID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid player id %q", args[0])
			}
			return withFactory(cmd.Context(), func(factory service.UnitOfWorkFactory, cfg *config.Config) error {
				report, err := service.NewLedgerService(factory).Reconcile(cmd.Context(), playerID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "player %d: balance %d, entry sum %d over %d entries\n",
					report.PlayerID, report.Balance, report.EntrySum, report.EntryCount)
				if !report.IsConsistent() {
					return fmt.Errorf("ledger inconsistent for player %d: broken chain at entries %v", playerID, report.BrokenChains)
				}
				return nil
			})
		},
	})

	return cmd
}

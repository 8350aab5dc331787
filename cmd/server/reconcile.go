package main

import (
	"fmt"

	"viewearn/internal/clock"
	"viewearn/internal/database"
	"viewearn/internal/repository"
	"viewearn/internal/service"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(reconcileCmd)
	reconcileCmd.Flags().Uint("user", 0, "user ID to reconcile")
	_ = reconcileCmd.MarkFlagRequired("user")
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Compare a wallet's coins with the sum of its coin ledger",
	Long: `Reconcile locks the user's wallet, sums every coin transaction and
prints both numbers. It exits non-zero when they differ.`,
	RunE: runReconcile,
}

func runReconcile(cmd *cobra.Command, args []string) error {
	userID, _ := cmd.Flags().GetUint("user")
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		return err
	}
	clk, err := clock.NewZone(cfg.Rewards.Timezone)
	if err != nil {
		return err
	}
	ledger := service.NewLedgerService(repository.NewLedgerStore(db), clk, log)
	r, err := ledger.Reconcile(cmd.Context(), userID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "user %d: wallet coins %d, ledger sum %d\n", r.UserID, r.Coins, r.LedgerSum)
	if !r.Balanced {
		return fmt.Errorf("user %d is out of balance by %d coins", r.UserID, r.Coins-r.LedgerSum)
	}
	return nil
}

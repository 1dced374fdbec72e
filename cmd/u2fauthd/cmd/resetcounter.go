package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solokeys-go/u2fauth/internal/store"
)

var resetCounterCmd = &cobra.Command{
	Use:   "reset-counter",
	Short: "Wipe the test harness's store counter and key material",
	Long: `reset-counter discards the store's persisted counter and key
material and lets the next "serve" run re-provision from scratch. This is
a test-harness convenience for starting a fresh virtual device; a real
authenticator's counter must never move backwards (spec.md §3 invariant
I4), so this command has no equivalent in deployed firmware and exists
only because this store has no physical device behind it to reset.`,
	RunE: runResetCounter,
}

func init() {
	rootCmd.AddCommand(resetCounterCmd)
	resetCounterCmd.Flags().Bool("yes", false, "Confirm the reset without an interactive prompt")
}

func runResetCounter(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	confirmed, _ := cmd.Flags().GetBool("yes")
	if !confirmed {
		return fmt.Errorf("refusing to reset %s without --yes", cfg.Store.DSN)
	}

	db, err := store.Open(cfg.Store.DSN)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	if err := db.Reset(); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "store %s reset\n", cfg.Store.DSN)
	return nil
}

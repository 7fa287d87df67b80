package main

import (
	"fmt"
	"time"

	"github.com/cuemby/txmgr/pkg/log"
	"github.com/cuemby/txmgr/pkg/txlog"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print a summary of the transaction log in sys-dir",
	Long: `status opens the current log segment (running the same inconsistency
check Enable does) and prints the segment count, commit range, and sizes
recorded in txmgr.json, then closes it again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sysDir, _ := rootCmd.PersistentFlags().GetString("sys-dir")

		if !txlog.Exists(sysDir) {
			fmt.Printf("No transaction log found at %s\n", sysDir)
			return nil
		}

		l, err := txlog.Open(sysDir, 1<<62, log.Logger)
		if err != nil {
			return fmt.Errorf("opening log (consider running `txmgrd recover`): %w", err)
		}
		defer l.Close(nil, time.Now())

		infos := l.Infos()
		fmt.Printf("Transaction log at %s\n", sysDir)
		fmt.Printf("  segments:       %d\n", len(infos))
		fmt.Printf("  last committed: %d\n", l.LastCommitted())
		fmt.Println()
		fmt.Printf("%-28s %-20s %10s\n", "SEGMENT", "COMMIT RANGE", "SIZE")
		for _, info := range infos {
			rng := "empty"
			if !info.TxIds.Empty() {
				rng = fmt.Sprintf("%d-%d", info.TxIds.First, info.TxIds.Last)
			}
			fmt.Printf("%-28s %-20s %10d\n", info.Name, rng, info.Size)
		}
		return nil
	},
}

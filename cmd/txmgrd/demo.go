package main

import (
	"context"
	"fmt"

	"github.com/cuemby/txmgr/pkg/clientpool"
	"github.com/cuemby/txmgr/pkg/config"
	"github.com/cuemby/txmgr/pkg/contract"
	"github.com/cuemby/txmgr/pkg/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a short scripted transaction against a BoltStore-backed object store",
	Long: `demo wires a single BoltStore-backed object store to a live manager,
runs one transaction through begin/enlist/commit, and prints the commit
result and the value read back from the store so the whole pipeline can be
watched end-to-end.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sysDir, _ := rootCmd.PersistentFlags().GetString("sys-dir")
		cfg := config.Default(sysDir)

		registry := clientpool.NewRegistry()
		registry.Register("demo", "validate", func(ctx context.Context, store contract.ObjectStore, txID int64) error {
			log.Logger.Debug().Str("store_id", store.ID()).Int64("tx_id", txID).Msg("demo validator ran")
			return nil
		})

		sys, err := buildSystem(cfg, []string{"demo"}, registry)
		if err != nil {
			return err
		}
		defer sys.close()

		if err := sys.mgr.Enable(); err != nil {
			return fmt.Errorf("enabling manager: %w", err)
		}

		clientID := uuid.New().String()
		writeID, err := sys.mgr.Begin(clientID, nil, false)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		fmt.Printf("began transaction, write id %d\n", writeID)

		ctx := context.Background()
		store := sys.stores["demo"]
		if err := store.Put(ctx, writeID, "greeting", []byte(`"hello from txmgrd demo"`)); err != nil {
			return fmt.Errorf("put: %w", err)
		}
		fmt.Println("staged a write against store \"demo\"")

		result, err := sys.mgr.Commit(writeID)
		if err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		committed, err := result.Wait()
		if err != nil {
			return fmt.Errorf("transaction did not commit: %w", err)
		}
		fmt.Printf("transaction committed: %v\n", committed)

		value, ok, err := store.Get("greeting")
		if err != nil {
			return fmt.Errorf("get: %w", err)
		}
		if ok {
			fmt.Printf("read back committed value: %s\n", value)
		}

		if _, err := sys.mgr.Disable(false).Wait(); err != nil {
			return fmt.Errorf("disable: %w", err)
		}
		fmt.Println("manager disabled cleanly")
		return nil
	},
}

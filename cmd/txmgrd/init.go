package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cuemby/txmgr/pkg/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a fresh configuration file and system directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		sysDir, _ := rootCmd.PersistentFlags().GetString("sys-dir")
		configPath, _ := cmd.Flags().GetString("config")

		if err := os.MkdirAll(sysDir, 0o755); err != nil {
			return fmt.Errorf("creating sys dir: %w", err)
		}

		cfg := config.Default(sysDir)
		if err := config.Save(configPath, cfg); err != nil {
			return err
		}

		fmt.Printf("Wrote configuration to %s\n", configPath)
		fmt.Printf("  sysDir: %s\n", cfg.SysDir)
		fmt.Printf("  maxLogSize: %d bytes\n", cfg.MaxLogSize)
		fmt.Printf("  objectStoreDataDir: %s\n", cfg.ObjectStoreDataDir)
		return nil
	},
}

func init() {
	initCmd.Flags().String("config", filepath.Join(".", "txmgrd.yaml"), "Path to write the configuration file")
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lojaops/gerencial-vendas/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "gerencial-vendas",
	Short: "Sales report sync",
	Long:  "Retrieves the gerencial-vendas sales report from the commerce backend, normalizes it and upserts it into the gerencial_vendas table.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

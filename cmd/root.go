package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mowthos/cluster-engine/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "mowthos",
	Short: "Neighborhood cluster qualification engine",
	Long:  "Registers host and neighbor homes, geocodes addresses, and qualifies physically-adjacent cluster partners using road-crossing checks.",
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

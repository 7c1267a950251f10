package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/resumewise/refine-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "refine-cli",
	Short: "Iterative resume refinement engine",
	Long:  "Splits a resume into sections, iteratively rewrites each one against a job description from rotating professional perspectives, and verifies every candidate against the original to block fabricated content.",
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

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/phylo-tools/strainfilter/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "strainfilter",
	Short: "Filter and subsample pathogen sample metadata",
	Long:  "Streams sample metadata through configurable predicates, then subsamples the survivors evenly across groups for representative phylogenetic datasets.",
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

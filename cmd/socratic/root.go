package main

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "socratic",
	Short: "Adaptive Socratic tutoring engine",
	Long: `Socratic asks questions instead of giving answers. It places each learner
on a relatedness/difficulty grid, picks whether to expand, explore, extend
or review, and checks answers against a small knowledge base.

Configuration comes from a YAML file (--config or $SOCRATIC_CONFIG) and
SOCRATIC_* environment variables.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $SOCRATIC_CONFIG)")
	rootCmd.AddCommand(verifyCmd, tutorCmd, memoryCmd, escapesCmd)
}

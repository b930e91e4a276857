package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scrypster/socratic/internal/config"
	"github.com/scrypster/socratic/internal/memory"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect learner memory",
}

var memoryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show long-term memory and cold storage statistics",
	RunE:  runMemoryStats,
}

func init() {
	memoryCmd.AddCommand(memoryStatsCmd)
}

func runMemoryStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	lt, err := memory.NewLongTerm(cfg.Memory.LongTerm())
	if err != nil {
		return err
	}

	report := struct {
		Memory    config.MemoryConfig  `json:"config"`
		LongTerm  memory.LongTermStats `json:"long_term"`
		Integrity bool                 `json:"integrity"`
	}{
		Memory:    cfg.Memory,
		LongTerm:  lt.Stats(),
		Integrity: lt.IntegrityCheck(),
	}
	b, _ := json.MarshalIndent(report, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}

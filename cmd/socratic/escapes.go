package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/scrypster/socratic/internal/storage/sqlite"
)

var escapesCmd = &cobra.Command{
	Use:   "escapes",
	Short: "List recorded escape-hatch events",
	Long: `List the escape events in the journal, oldest first. The journal is
written when storage.journal_enabled is set.

Example:
  socratic escapes --learner ada --since 24h`,
	RunE: runEscapes,
}

var (
	escapesLearner string
	escapesSince   time.Duration
	escapesLimit   int
)

func init() {
	escapesCmd.Flags().StringVar(&escapesLearner, "learner", "", "Only this learner")
	escapesCmd.Flags().DurationVar(&escapesSince, "since", 0, "Only events newer than this")
	escapesCmd.Flags().IntVar(&escapesLimit, "limit", 50, "Maximum events to show")
}

func runEscapes(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	f := sqlite.ListFilter{LearnerID: escapesLearner, Limit: escapesLimit}
	if escapesSince > 0 {
		f.Since = time.Now().Add(-escapesSince)
	}
	events, err := j.List(cmd.Context(), f)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(events) == 0 {
		fmt.Fprintln(out, "no escape events")
		return nil
	}
	for _, e := range events {
		fmt.Fprintf(out, "%s  %-10s %-8s topic=%q learner=%q\n",
			e.At.Local().Format(time.RFC3339), e.ID[:min(8, len(e.ID))], e.Chosen, e.Topic, e.LearnerID)
	}
	return nil
}

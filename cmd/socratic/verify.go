package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scrypster/socratic/internal/truth"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <statement>",
	Short: "Score a statement against the knowledge base",
	Long: `Verify extracts the keywords of a statement, correlates them with the
knowledge base and prints a truth score from 0 to 100.

Example:
  socratic verify "Objects fall downward due to gravity"
  socratic verify --topic gravity --json "Gravity pulls objects upward"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

var (
	verifyTopic string
	verifyJSON  bool
)

func init() {
	verifyCmd.Flags().StringVar(&verifyTopic, "topic", "", "Topic whose definition joins the contradiction check")
	verifyCmd.Flags().BoolVar(&verifyJSON, "json", false, "Print the full result as JSON")
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	kb, err := loadKnowledge(cfg)
	if err != nil {
		return err
	}
	te := truth.NewEngine(kb, truth.WithLogger(newLogger(cfg.Log, os.Stderr)))

	res := te.VerifyInContext(strings.Join(args, " "), truth.VerifyContext{Topic: verifyTopic})
	if verifyJSON {
		b, _ := json.MarshalIndent(res, "", "  ")
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Truth score: %d (%s)\n", res.TruthScore, res.TruthLevel)
	fmt.Fprintf(out, "Coverage:    %s\n", res.Coverage)
	fmt.Fprintf(out, "Keywords:    %s\n", strings.Join(res.ExtractedKeywords, ", "))
	for _, f := range res.SupportingFacts {
		fmt.Fprintf(out, "  %-16s %.2f  [%s]\n", f.ConceptID, f.Correlation, strings.Join(f.MatchingKeywords, " "))
	}
	for _, c := range res.Contradictions {
		fmt.Fprintf(out, "  contradiction %s: %s (-%.2f)\n", c.Rule, c.Description, c.Penalty)
	}
	if res.UnnaturalList {
		fmt.Fprintln(out, "  reads as a keyword list")
	}
	return nil
}

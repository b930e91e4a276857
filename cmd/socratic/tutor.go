package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scrypster/socratic/internal/memory"
	"github.com/scrypster/socratic/internal/session"
	"github.com/scrypster/socratic/pkg/types"
)

var tutorCmd = &cobra.Command{
	Use:   "tutor",
	Short: "Run an interactive tutoring session",
	Long: `Tutor runs a line-oriented session on stdin/stdout. Type an answer to
reply to the current question. Commands:

  :next          skip to the next question
  :steer TYPE    ask for EXPAND, EXPLORE, EXTEND or REVIEW next
  :topic NAME    switch topic
  :quit          end the session and print its summary

Example:
  socratic tutor --learner ada --topic gravity`,
	RunE: runTutor,
}

var (
	tutorLearner string
	tutorTopic   string
	tutorLevel   float64
)

func init() {
	tutorCmd.Flags().StringVar(&tutorLearner, "learner", "learner", "Learner id")
	tutorCmd.Flags().StringVar(&tutorTopic, "topic", "", "Opening topic")
	tutorCmd.Flags().Float64Var(&tutorLevel, "level", -1, "Initial learner level in [0,1] (default: unknown)")
}

func runTutor(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	sched := memory.NewScheduler(a.working, a.longTerm,
		a.cfg.Memory.WorkingDecayInterval, a.cfg.Memory.LongTermDecayInterval, a.logger)
	go func() { _ = sched.Run(ctx) }()

	initial := &types.Context{AllowReview: types.Bool(a.cfg.Selector.AllowReview)}
	if tutorLevel >= 0 {
		initial.LearnerLevel = types.Float(tutorLevel)
	}
	sid, err := a.controller.Start(tutorLearner, tutorTopic, initial)
	if err != nil {
		return err
	}

	t := &tutor{ctrl: a.controller, sid: sid, out: cmd.OutOrStdout()}
	if err := t.run(ctx, cmd.InOrStdin()); err != nil {
		return err
	}

	sum, _ := a.controller.End(sid)
	b, _ := json.MarshalIndent(sum, "", "  ")
	fmt.Fprintln(t.out, string(b))
	return nil
}

type tutor struct {
	ctrl    *session.Controller
	sid     string
	out     io.Writer
	current string
}

func (t *tutor) ask() bool {
	p, ok := t.ctrl.NextQuestion(t.sid)
	if !ok {
		return false
	}
	t.current = p.InquiryID
	fmt.Fprintf(t.out, "\n[%s] %s\n", p.Type, p.Text)
	if p.FollowUp != "" {
		fmt.Fprintln(t.out, p.FollowUp)
	}
	return true
}

func (t *tutor) run(ctx context.Context, in io.Reader) error {
	if !t.ask() {
		return nil
	}

	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				errc <- nil
				return
			}
		}
		errc <- scanner.Err()
	}()

	for {
		fmt.Fprint(t.out, "> ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(t.out)
			return nil
		case l, ok := <-lines:
			if !ok {
				return <-errc
			}
			line = strings.TrimSpace(l)
		}

		switch {
		case line == "":
			continue
		case line == ":quit":
			return nil
		case line == ":next":
			t.ask()
		case strings.HasPrefix(line, ":steer "):
			if _, err := t.ctrl.Steer(t.sid, strings.TrimPrefix(line, ":steer ")); err != nil {
				fmt.Fprintln(t.out, err)
				continue
			}
			t.ask()
		case strings.HasPrefix(line, ":topic "):
			t.ctrl.SwitchTopic(t.sid, strings.TrimPrefix(line, ":topic "))
			t.ask()
		default:
			t.answer(line)
		}
	}
}

func (t *tutor) answer(line string) {
	out, ok, err := t.ctrl.Submit(t.current, line)
	switch {
	case err != nil:
		fmt.Fprintln(t.out, err)
		return
	case !ok:
		return
	}
	if out.Escape == nil {
		fmt.Fprintf(t.out, "(comprehension %.2f, %s)\n", out.Analysis.Comprehension, out.Analysis.Depth)
	}
	if out.FollowUp != "" {
		fmt.Fprintln(t.out, out.FollowUp)
		return
	}
	t.ask()
}

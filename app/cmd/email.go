package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"agenthub/app/agent"
	"agenthub/types"

	"github.com/spf13/cobra"
)

var emailHuman string

var emailCmd = &cobra.Command{
	Use:   "email [file]",
	Short: "Answer a support email and optionally grade a human reply against it",
	Long: `Reads a customer email from file (or - for stdin), streams the AI answer
and, with --human, compares it against a human written reply.`,
	Args: cobra.ExactArgs(1),
	RunE: runEmail,
}

func init() {
	emailCmd.Flags().StringVar(&emailHuman, "human", "", "file holding the human reply to compare with")
}

func readArg(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		return string(b), err
	}
	b, err := os.ReadFile(path)
	return string(b), err
}

func runEmail(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	text, err := readArg(cmd, args[0])
	if err != nil {
		return err
	}

	r := newRenderer(cmd.OutOrStdout())
	s := agent.NewEmailSession(backend(), logger)

	// deltas are cumulative, print only what is new
	printed := 0
	state, err := s.Respond(ctx, text, func(full string) {
		if len(full) > printed {
			fmt.Fprint(r.out, full[printed:])
			printed = len(full)
		}
	})
	fmt.Fprintln(r.out)
	if err != nil {
		return err
	}
	r.title("Question")
	r.markdown(state.Question)

	if emailHuman == "" {
		return nil
	}
	human, err := os.ReadFile(emailHuman)
	if err != nil {
		return err
	}
	if err := s.Compare(); err != nil {
		return err
	}
	res, err := s.Evaluate(ctx, strings.TrimSpace(string(human)))
	if err != nil {
		return err
	}

	renderEvaluation(r, res)
	return nil
}

// renderEvaluation prints the AI side first, then the human side, whatever
// their position in the answer.
func renderEvaluation(r *renderer, res types.EvaluationResult) {
	r.title("Evaluation")
	fmt.Fprintf(r.out, "winner: %s\n", res.Winner)
	for _, label := range []string{"AI", "Human"} {
		side, ok := res.Side(label)
		if !ok {
			continue
		}
		fmt.Fprintf(r.out, "%s total %.1f\n", side.Label, side.Scores.Total)
		for _, st := range side.Strengths {
			r.note("  + %s", st)
		}
		for _, w := range side.Weaknesses {
			r.note("  - %s", w)
		}
		if side.Feedback != "" {
			r.markdown(side.Feedback)
		}
	}
	if res.Evaluation.OverallReasoning != "" {
		r.markdown(res.Evaluation.OverallReasoning)
	}
}

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/lifeline/internal/config"
	"github.com/roach88/lifeline/internal/harness"
)

// SimulationReport is the output of the simulate command.
type SimulationReport struct {
	Name   string               `json:"name"`
	Pass   bool                 `json:"pass"`
	Trace  []harness.TraceEvent `json:"trace"`
	Errors []string             `json:"errors,omitempty"`
}

func (r SimulationReport) RenderText(w io.Writer) error {
	for _, ev := range r.Trace {
		where := ev.Device
		if ev.From != "" {
			where = ev.From + " -> " + ev.To
		}
		fmt.Fprintf(w, "[%2d] %-8s %-18s %-4s %s", ev.Step, ev.Action, where, ev.Request, ev.Outcome)
		if ev.CopyID != "" {
			fmt.Fprintf(w, " copy=%s hop=%d", ev.CopyID, ev.HopCount)
		}
		fmt.Fprintln(w)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  x %s\n", e)
	}

	verdict := "PASS"
	if !r.Pass {
		verdict = "FAIL"
	}
	_, err := fmt.Fprintf(w, "%s %s (%d steps)\n", verdict, r.Name, len(r.Trace))
	return err
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "simulate <scenario.yaml>",
		Short: "Run a multi-device relay scenario in memory",
		Long: `Run a YAML scenario against in-memory devices sharing a simulated clock
and backend. Nothing is written to the local database.

Exit codes:
  0 - All expectations and assertions held
  1 - Scenario failed
  2 - Command error (unreadable or invalid scenario)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenario, err := harness.LoadScenario(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load scenario", err)
			}

			var opts []harness.Option
			if rootOpts.Verbose {
				logger, closer, err := newLogger(config.LogConfig{Level: "info"}, rootOpts, cmd.ErrOrStderr())
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to set up logging", err)
				}
				defer closer.Close()
				opts = append(opts, harness.WithLogger(logger))
			}

			result, err := harness.Run(cmd.Context(), scenario, opts...)
			if err != nil {
				return WrapExitError(ExitCommandError, "simulation error", err)
			}

			report := SimulationReport{
				Name:   scenario.Name,
				Pass:   result.Pass,
				Trace:  result.Trace,
				Errors: result.Errors,
			}
			if err := formatter(rootOpts, cmd).Success(report); err != nil {
				return err
			}
			if !result.Pass {
				return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
			}
			return nil
		},
	}
}

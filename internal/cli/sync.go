package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/lifeline/internal/syncer"
)

// SyncReport is the output of the sync command.
type SyncReport struct {
	Offline  bool            `json:"offline"`
	Pending  int             `json:"pending"`
	Synced   int             `json:"synced"`
	Skipped  int             `json:"skipped,omitempty"`
	Failures []FailureReport `json:"failures,omitempty"`
}

// FailureReport is one failed upload.
type FailureReport struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
}

func newSyncReport(res syncer.Result) SyncReport {
	r := SyncReport{
		Offline: res.Offline,
		Pending: res.Pending,
		Synced:  res.Synced,
		Skipped: res.Skipped,
	}
	for _, f := range res.Failures {
		r.Failures = append(r.Failures, FailureReport{RequestID: f.RequestID, Error: f.Err.Error()})
	}
	return r
}

func (r SyncReport) RenderText(w io.Writer) error {
	if r.Offline {
		_, err := fmt.Fprintln(w, "Backend unreachable; nothing uploaded.")
		return err
	}
	fmt.Fprintf(w, "Synced %d of %d pending", r.Synced, r.Pending)
	if r.Skipped > 0 {
		fmt.Fprintf(w, " (%d skipped)", r.Skipped)
	}
	fmt.Fprintln(w)
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  FAILED %s: %s\n", f.RequestID, f.Error)
	}
	return nil
}

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	Backend string
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Upload pending requests to the backend once",
		Long: `Run one sync pass: probe the backend, upload every pending copy and mark
the accepted ones synced. Failed uploads stay pending for the next pass.

Exit codes:
  0 - Pass completed (including offline)
  1 - One or more uploads failed
  2 - Command error`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts.RootOptions, cmd, func(app *App) error {
				orch, err := app.Syncer(opts.Backend)
				if err != nil {
					return err
				}

				res, err := orch.Sync(cmd.Context())
				report := newSyncReport(res)
				if err != nil {
					return WrapExitError(ExitCommandError, "sync failed", err)
				}
				if err := formatter(opts.RootOptions, cmd).Success(report); err != nil {
					return err
				}
				if len(report.Failures) > 0 {
					return NewExitError(ExitFailure, fmt.Sprintf("%d uploads failed", len(report.Failures)))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.Backend, "backend", "", "backend base URL (overrides backend.url)")
	return cmd
}

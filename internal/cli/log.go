package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/lifeline/internal/model"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Request string
	Since   int64
	Limit   int
}

type logEntries []model.SyncLogEntry

func (l logEntries) RenderText(w io.Writer) error {
	if len(l) == 0 {
		_, err := fmt.Fprintln(w, "No log entries.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tTIME\tACTION\tREQUEST\tDEVICE")
	for _, e := range l {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			e.Seq, e.Timestamp.UTC().Format(time.RFC3339), e.Action, e.RequestID, e.DeviceID)
	}
	return tw.Flush()
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the append-only sync log",
		Long: `Show sync log entries in sequence order. With --request, show the history
of one copy; otherwise show entries after --since, which lets a poller tail
newly accepted requests.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts.RootOptions, cmd, func(app *App) error {
				var (
					entries []model.SyncLogEntry
					err     error
				)
				if opts.Request != "" {
					entries, err = app.Store.ReadLog(cmd.Context(), opts.Request)
				} else {
					entries, err = app.Store.ReadLogSince(cmd.Context(), opts.Since, opts.Limit)
				}
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read sync log", err)
				}
				return formatter(opts.RootOptions, cmd).Success(logEntries(entries))
			})
		},
	}

	cmd.Flags().StringVar(&opts.Request, "request", "", "only entries for this copy id")
	cmd.Flags().Int64Var(&opts.Since, "since", 0, "only entries after this sequence number")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum entries (0 = all)")
	return cmd
}

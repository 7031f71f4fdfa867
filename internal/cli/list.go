package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/lifeline/internal/model"
	"github.com/roach88/lifeline/internal/store"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Pending bool
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List requests held on this device",
		Long: `List every request copy held on this device, newest first.
With --pending, list only copies awaiting upload, oldest first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts.RootOptions, cmd, func(app *App) error {
				var (
					recs []model.RequestRecord
					err  error
				)
				if opts.Pending {
					recs, err = app.Store.ListPendingSync(cmd.Context())
				} else {
					recs, err = app.Store.ListAll(cmd.Context())
				}
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to list requests", err)
				}
				return formatter(opts.RootOptions, cmd).Success(recordList(recs))
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Pending, "pending", false, "only copies awaiting upload")
	return cmd
}

// StatusSummary is the output of the status command.
type StatusSummary struct {
	DeviceID string               `json:"device_id"`
	Database string               `json:"database"`
	Counts   map[model.Status]int `json:"counts"`
	Audit    AuditSummary         `json:"audit"`
}

// AuditSummary reports store consistency.
type AuditSummary struct {
	Healthy        bool     `json:"healthy"`
	Records        int      `json:"records"`
	LogEntries     int      `json:"log_entries"`
	LastSeq        int64    `json:"last_seq"`
	MissingEnqueue []string `json:"missing_enqueue,omitempty"`
	MissingSynced  []string `json:"missing_synced,omitempty"`
}

func (s StatusSummary) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "Device:   %s\n", s.DeviceID)
	fmt.Fprintf(w, "Database: %s\n", s.Database)
	for _, st := range model.Statuses {
		fmt.Fprintf(w, "  %-13s %d\n", st, s.Counts[st])
	}
	health := "healthy"
	if !s.Audit.Healthy {
		health = fmt.Sprintf("UNHEALTHY (missing enqueue %v, missing synced %v)",
			s.Audit.MissingEnqueue, s.Audit.MissingSynced)
	}
	_, err := fmt.Fprintf(w, "Sync log: %d entries, last seq %d, %s\n",
		s.Audit.LogEntries, s.Audit.LastSeq, health)
	return err
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show request counts and sync log health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(app *App) error {
				summary, err := buildStatus(cmd, app)
				if err != nil {
					return err
				}
				return formatter(rootOpts, cmd).Success(summary)
			})
		},
	}
}

func buildStatus(cmd *cobra.Command, app *App) (StatusSummary, error) {
	counts, err := app.Store.CountByStatus(cmd.Context())
	if err != nil {
		return StatusSummary{}, WrapExitError(ExitCommandError, "failed to count requests", err)
	}
	report, err := app.Store.Audit(cmd.Context())
	if err != nil {
		return StatusSummary{}, WrapExitError(ExitCommandError, "failed to audit store", err)
	}
	return StatusSummary{
		DeviceID: app.DeviceID,
		Database: app.Config.DatabasePath(),
		Counts:   counts,
		Audit:    auditSummary(report),
	}, nil
}

func auditSummary(r store.AuditReport) AuditSummary {
	return AuditSummary{
		Healthy:        r.Healthy(),
		Records:        r.Records,
		LogEntries:     r.Entries,
		LastSeq:        r.LastSeq,
		MissingEnqueue: r.MissingEnqueue,
		MissingSynced:  r.MissingSynced,
	}
}

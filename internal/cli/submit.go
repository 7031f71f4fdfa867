package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/lifeline/internal/intake"
	"github.com/roach88/lifeline/internal/model"
)

// SubmitOptions holds flags for the submit command.
type SubmitOptions struct {
	*RootOptions
	BloodType    string
	Component    string
	Units        int
	Urgency      string
	ContactName  string
	ContactPhone string
	Notes        string
	Lat          float64
	Lng          float64
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Create a new emergency blood request on this device",
		Long: `Create a new emergency blood request. The request is stored locally with
status pending_sync and hop count 0, ready to broadcast and sync.

Example:
  lifeline submit --blood-type O- --units 2 --urgency CRITICAL \
    --contact-name "Dr. Rao" --contact-phone +91-9000000000 \
    --lat 17.42541 --lng 78.45151`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.BloodType, "blood-type", "", "ABO/Rh group, e.g. O- (required)")
	cmd.Flags().StringVar(&opts.Component, "component", string(model.ComponentWholeBlood), "WHOLE_BLOOD|PLATELETS|PLASMA")
	cmd.Flags().IntVar(&opts.Units, "units", 1, "units required")
	cmd.Flags().StringVar(&opts.Urgency, "urgency", string(model.UrgencyHigh), "CRITICAL|HIGH|MEDIUM|LOW")
	cmd.Flags().StringVar(&opts.ContactName, "contact-name", "", "contact person (required)")
	cmd.Flags().StringVar(&opts.ContactPhone, "contact-phone", "", "contact phone (required)")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "free text, never relayed")
	cmd.Flags().Float64Var(&opts.Lat, "lat", 0, "latitude (required)")
	cmd.Flags().Float64Var(&opts.Lng, "lng", 0, "longitude (required)")
	for _, name := range []string{"blood-type", "contact-name", "contact-phone", "lat", "lng"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func runSubmit(opts *SubmitOptions, cmd *cobra.Command) error {
	return withApp(opts.RootOptions, cmd, func(app *App) error {
		svc, err := app.Intake()
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid config", err)
		}

		rec, err := svc.Submit(cmd.Context(), intake.Form{
			BloodType:     model.BloodType(opts.BloodType),
			ComponentType: model.ComponentType(opts.Component),
			Units:         opts.Units,
			Urgency:       model.Urgency(opts.Urgency),
			ContactName:   opts.ContactName,
			ContactPhone:  opts.ContactPhone,
			Notes:         opts.Notes,
			Location:      &model.Location{Lat: opts.Lat, Lng: opts.Lng},
		})
		var ve *model.ValidationError
		if errors.As(err, &ve) {
			out := formatter(opts.RootOptions, cmd)
			_ = out.Error("INVALID_REQUEST", ve.Error(), map[string]string{"field": ve.Field})
			return ReportedExitError(ExitFailure, "invalid request", err)
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to submit", err)
		}

		return formatter(opts.RootOptions, cmd).Success(recordList{rec})
	})
}

// recordList renders records as a table in text mode.
type recordList []model.RequestRecord

func (l recordList) RenderText(w io.Writer) error {
	if len(l) == 0 {
		_, err := fmt.Fprintln(w, "No requests.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBLOOD\tCOMPONENT\tUNITS\tURGENCY\tSTATUS\tHOPS\tCREATED")
	for _, r := range l {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%d/%d\t%s\n",
			r.ID, r.BloodType, r.ComponentType, r.Units, r.Urgency, r.Status,
			r.HopCount, r.MaxHops, r.CreatedAt.UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}

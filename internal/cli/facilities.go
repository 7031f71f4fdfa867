package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/lifeline/internal/facility"
	"github.com/roach88/lifeline/internal/model"
)

// NewFacilitiesCommand creates the facilities command group.
func NewFacilitiesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "facilities",
		Short: "Manage the cached blood bank directory",
	}
	cmd.AddCommand(newFacilitiesLoadCommand(rootOpts))
	cmd.AddCommand(newFacilitiesNearbyCommand(rootOpts))
	cmd.AddCommand(newFacilitiesListCommand(rootOpts))
	return cmd
}

func newFacilitiesListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every cached facility",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(app *App) error {
				all, err := app.Facilities().All(cmd.Context())
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read facilities", err)
				}
				matches := make(matchList, len(all))
				for i, f := range all {
					matches[i] = facility.Match{Facility: f}
				}
				return formatter(rootOpts, cmd).Success(matches)
			})
		},
	}
}

// LoadResult is the output of facilities load.
type LoadResult struct {
	Source string `json:"source"`
	Loaded int    `json:"loaded"`
}

func (r LoadResult) RenderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Loaded %d facilities from %s\n", r.Loaded, r.Source)
	return err
}

func newFacilitiesLoadCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "load <file.yaml>",
		Short: "Replace the facility cache with a YAML directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			facilities, err := facility.LoadFile(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load facilities", err)
			}
			return withApp(rootOpts, cmd, func(app *App) error {
				if err := app.Facilities().Refresh(cmd.Context(), facilities); err != nil {
					return WrapExitError(ExitCommandError, "failed to refresh cache", err)
				}
				return formatter(rootOpts, cmd).Success(LoadResult{Source: args[0], Loaded: len(facilities)})
			})
		},
	}
}

// NearbyOptions holds flags for facilities nearby.
type NearbyOptions struct {
	*RootOptions
	Lat      float64
	Lng      float64
	RadiusKm float64
	Limit    int
}

type matchList []facility.Match

func (l matchList) RenderText(w io.Writer) error {
	if len(l) == 0 {
		_, err := fmt.Fprintln(w, "No facilities in range.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tKM\tPHONE\t24x7")
	for _, m := range l {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%t\n", m.ID, m.Name, m.DistanceKm, m.ContactPhone, m.Open24x7)
	}
	return tw.Flush()
}

func newFacilitiesNearbyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NearbyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "nearby",
		Short: "List cached facilities closest to a point",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts.RootOptions, cmd, func(app *App) error {
				from := model.Location{Lat: opts.Lat, Lng: opts.Lng}
				matches, err := app.Facilities().Nearby(cmd.Context(), from, opts.RadiusKm, opts.Limit)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to query facilities", err)
				}
				return formatter(opts.RootOptions, cmd).Success(matchList(matches))
			})
		},
	}

	cmd.Flags().Float64Var(&opts.Lat, "lat", 0, "latitude (required)")
	cmd.Flags().Float64Var(&opts.Lng, "lng", 0, "longitude (required)")
	cmd.Flags().Float64Var(&opts.RadiusKm, "radius", 25, "search radius in km (0 = unlimited)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 5, "maximum results (0 = all)")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")
	return cmd
}

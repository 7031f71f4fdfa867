// Package cli implements the lifeline command line.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	DataDir    string
	Database   string
	DeviceID   string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the lifeline CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "lifeline",
		Short: "Delay-tolerant emergency blood request relay",
		Long: `Lifeline stores emergency blood requests on this device, relays them
phone to phone while offline and uploads them once a connection appears.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.ConfigPath, "config", "", "path to a CUE config file")
	flags.StringVar(&opts.DataDir, "data-dir", "", "data directory (overrides config)")
	flags.StringVar(&opts.Database, "db", "", "SQLite database path (overrides config)")
	flags.StringVar(&opts.DeviceID, "device-id", "", "device id (overrides the persisted id)")

	cmd.AddCommand(NewSubmitCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewBroadcastCommand(opts))
	cmd.AddCommand(NewReceiveCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))
	cmd.AddCommand(NewFacilitiesCommand(opts))
	cmd.AddCommand(NewSimulateCommand(opts))
	cmd.AddCommand(NewDaemonCommand(opts))

	return cmd
}

func formatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
}

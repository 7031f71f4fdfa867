package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/lifeline/internal/relay"
	"github.com/roach88/lifeline/internal/store"
)

// BroadcastResult is the output of the broadcast command.
type BroadcastResult struct {
	RequestID string `json:"request_id"`
	HopCount  int    `json:"hop_count"`
	Payload   string `json:"payload"`
}

// RenderText prints only the payload so it can be piped to a transport.
func (r BroadcastResult) RenderText(w io.Writer) error {
	_, err := fmt.Fprintln(w, r.Payload)
	return err
}

// NewBroadcastCommand creates the broadcast command.
func NewBroadcastCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "broadcast <request-id>",
		Short: "Print the relay payload for a request held on this device",
		Long: `Render a stored request copy as a relay payload for nearby devices.
Contact details and notes are not included in the payload.

Example:
  lifeline broadcast 0190a0e4-... | transport-send
  lifeline receive "$(lifeline broadcast <id> --data-dir phone-a)" --data-dir phone-b`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(app *App) error {
				rec, err := app.Store.Get(cmd.Context(), args[0])
				if errors.Is(err, store.ErrNotFound) {
					return WrapExitError(ExitFailure, "request not found", err)
				}
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read request", err)
				}

				eng, err := app.Relay()
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to build relay engine", err)
				}
				payload, err := eng.Generate(cmd.Context(), rec)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to generate payload", err)
				}

				return formatter(rootOpts, cmd).Success(BroadcastResult{
					RequestID: rec.OriginRequestID,
					HopCount:  rec.HopCount,
					Payload:   payload,
				})
			})
		},
	}
}

// ReceiveResult is the output of an accepted receive.
type ReceiveResult struct {
	CopyID    string `json:"copy_id"`
	RequestID string `json:"request_id"`
	HopCount  int    `json:"hop_count"`
	MaxHops   int    `json:"max_hops"`
	Seq       int64  `json:"seq"`
}

func (r ReceiveResult) RenderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Accepted %s as %s (hop %d/%d)\n",
		r.RequestID, r.CopyID, r.HopCount, r.MaxHops)
	return err
}

// NewReceiveCommand creates the receive command.
func NewReceiveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "receive <payload | ->",
		Short: "Admit a relay payload from a peer",
		Long: `Admit a payload received from a nearby device. Use "-" to read it from stdin.

Exit codes:
  0 - Payload accepted and stored
  1 - Payload rejected (INVALID_PAYLOAD, EXPIRED, DUPLICATE, HOP_LIMIT_EXCEEDED)
  2 - Command error`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := args[0]
			if payload == "-" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return WrapExitError(ExitCommandError, "failed to read stdin", err)
				}
				payload = strings.TrimSpace(line)
			}

			return withApp(rootOpts, cmd, func(app *App) error {
				eng, err := app.Relay()
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to build relay engine", err)
				}

				out := formatter(rootOpts, cmd)
				acc, err := eng.Receive(cmd.Context(), payload)
				if reason, ok := relay.ReasonOf(err); ok {
					_ = out.Error(string(reason), err.Error(), nil)
					return ReportedExitError(ExitFailure, "payload rejected", err)
				}
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to receive", err)
				}

				return out.Success(ReceiveResult{
					CopyID:    acc.Record.ID,
					RequestID: acc.Record.OriginRequestID,
					HopCount:  acc.HopCount,
					MaxHops:   acc.Record.MaxHops,
					Seq:       acc.Seq,
				})
			})
		},
	}
}

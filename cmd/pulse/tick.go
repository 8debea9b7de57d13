package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/pulse/internal/types"
)

var tickAt string

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Run one trigger sweep against the local database",
	Long: "Evaluate every schedule once, as the background worker does, and print the alerts produced.\n" +
		"Use --at to evaluate at an RFC 3339 instant instead of now.",
	Args: cobra.NoArgs,
	RunE: runTick,
}

func init() {
	tickCmd.Flags().StringVar(&tickAt, "at", "", "Evaluate at this RFC 3339 time")
}

func runTick(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	at := time.Time{}
	if tickAt != "" {
		parsed, err := time.Parse(time.RFC3339, tickAt)
		if err != nil {
			return fmt.Errorf("invalid --at: %w", err)
		}
		at = parsed
	}

	a, err := openOffline(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if at.IsZero() {
		at = a.engine.Now()
	}
	fired, err := a.engine.Tick(ctx, at)
	if err != nil {
		return fmt.Errorf("tick: %w", err)
	}
	if fired == nil {
		fired = []types.Alert{}
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), types.TickResponse{Alerts: fired, At: at})
	}

	if len(fired) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No alerts due.")
		return nil
	}
	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(w, "ID\tTYPE\tSEVERITY\tTITLE")
	for _, al := range fired {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", al.ID, al.Type, al.Severity, al.Title)
	}
	return w.Flush()
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/pulse/internal/types"
)

var dueCmd = &cobra.Command{
	Use:   "due [YYYY-MM-DD]",
	Short: "List the schedules due on a date",
	Long:  "Show which enabled schedules fall on the given date (default today), in schedule order.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDue,
}

func runDue(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var date types.Date
	if len(args) == 1 {
		d, err := types.ParseDate(args[0])
		if err != nil {
			return err
		}
		date = d
	}

	a, err := openOffline(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if date.IsZero() {
		date = types.DateOf(a.engine.Now())
	}
	due, err := a.engine.DueOn(ctx, date)
	if err != nil {
		return fmt.Errorf("due: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), types.CalendarDay{Date: date, Schedules: due})
	}

	if len(due) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Nothing due on %s.\n", date)
		return nil
	}
	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(w, "TIME\tID\tTYPE\tTITLE")
	for _, s := range due {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.TimeOfDay, s.ID, s.Type, s.Title)
	}
	return w.Flush()
}

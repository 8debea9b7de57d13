package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/pulse/internal/types"
)

var goalsCmd = &cobra.Command{
	Use:   "goals",
	Short: "Inspect and maintain health goals",
	Long:  "List goals or refresh their statuses without running the server.",
}

var goalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all goals",
	Args:  cobra.NoArgs,
	RunE:  runGoalsList,
}

var goalsRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Mark overdue and completed goals",
	Args:  cobra.NoArgs,
	RunE:  runGoalsRefresh,
}

func init() {
	goalsCmd.AddCommand(goalsListCmd)
	goalsCmd.AddCommand(goalsRefreshCmd)
}

func runGoalsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openOffline(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	all, err := a.goals.List(ctx)
	if err != nil {
		return fmt.Errorf("list goals: %w", err)
	}
	if all == nil {
		all = []types.HealthGoal{}
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"goals": all,
			"total": len(all),
		})
	}
	printGoals(cmd, all, "No goals found.")
	return nil
}

func runGoalsRefresh(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openOffline(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	changed, err := a.goals.RefreshStatuses(ctx, a.engine.Now())
	if err != nil {
		return fmt.Errorf("refresh goals: %w", err)
	}
	if changed == nil {
		changed = []types.HealthGoal{}
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), types.GoalRefreshResponse{Changed: changed})
	}
	printGoals(cmd, changed, "No status changes.")
	return nil
}

func printGoals(cmd *cobra.Command, goals []types.HealthGoal, empty string) {
	if len(goals) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), empty)
		return
	}
	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(w, "ID\tSTATUS\tPROGRESS\tTARGET DATE\tTITLE")
	for _, g := range goals {
		target := g.TargetDate.String()
		if g.TargetDate.IsZero() {
			target = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%.0f%%\t%s\t%s\n", g.ID, g.Status, g.Progress, target, g.Title)
	}
	w.Flush()
}

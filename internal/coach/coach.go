// Package coach phrases the description of goal check-in reminders.
package coach

import (
	"context"
	"fmt"
	"strconv"

	"github.com/hyperengineering/pulse/internal/types"
)

// Coach defines the interface contract for check-in reminder phrasing.
type Coach interface {
	CheckInPrompt(ctx context.Context, goal types.HealthGoal) (string, error)
}

// Compile-time interface check
var _ Coach = Static{}

// Static builds the prompt from the goal fields alone. It never fails.
type Static struct{}

// CheckInPrompt returns a fixed-format reminder for goal.
func (Static) CheckInPrompt(_ context.Context, goal types.HealthGoal) (string, error) {
	return Describe(goal), nil
}

// Describe renders the default check-in reminder text.
func Describe(goal types.HealthGoal) string {
	progress := strconv.FormatFloat(goal.Progress, 'f', -1, 64)
	if goal.Unit == "" {
		return fmt.Sprintf("Log your progress on %q. You are at %s%% of your target.", goal.Title, progress)
	}
	return fmt.Sprintf("Log your progress on %q: %s of %s %s so far (%s%%).",
		goal.Title,
		strconv.FormatFloat(goal.CurrentValue, 'f', -1, 64),
		strconv.FormatFloat(goal.TargetValue, 'f', -1, 64),
		goal.Unit,
		progress,
	)
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"go/format"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperengineering/pulse/internal/goals"
	"github.com/hyperengineering/pulse/internal/reminder"
	"github.com/hyperengineering/pulse/internal/store"
	"github.com/hyperengineering/pulse/internal/types"
)

// executeCmd runs a subcommand against dbPath with captured output.
func executeCmd(t *testing.T, dbPath string, args ...string) (stdout string, err error) {
	t.Helper()

	// Cobra parses into package-level variables; reset them so values from
	// earlier tests do not leak.
	dbPathOverride = ""
	jsonOutput = false
	tickAt = ""

	t.Setenv("PULSE_CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("PULSE_API_KEY", "")
	t.Setenv("PULSE_REDIS_ADDR", "")
	t.Setenv("PULSE_ARCHIVE_BUCKET", "")
	t.Setenv("OPENAI_API_KEY", "")

	fullArgs := append(args, "--db", dbPath)

	outBuf := new(bytes.Buffer)
	rootCmd.SetOut(outBuf)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs(fullArgs)

	err = rootCmd.Execute()

	rootCmd.SetOut(nil)
	rootCmd.SetErr(nil)
	rootCmd.SetArgs(nil)

	return outBuf.String(), err
}

// seed opens the database directly and applies fn, then closes it.
func seed(t *testing.T, dbPath string, fn func(e *reminder.Engine, g *goals.Scheduler)) {
	t.Helper()
	db, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer db.Close()
	fn(reminder.NewEngine(db), goals.NewScheduler(db))
}

func enableWater(t *testing.T, dbPath string) {
	t.Helper()
	seed(t, dbPath, func(e *reminder.Engine, _ *goals.Scheduler) {
		s, err := e.ToggleSchedule(context.Background(), "default-water", true)
		if err != nil || s == nil {
			t.Fatalf("ToggleSchedule() = %v, %v", s, err)
		}
	})
}

func TestDue_FreshDatabaseHasNothingEnabled(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pulse.db")

	out, err := executeCmd(t, dbPath, "due", "2024-03-04")
	if err != nil {
		t.Fatalf("due error = %v", err)
	}
	if !strings.Contains(out, "Nothing due on 2024-03-04.") {
		t.Errorf("output = %q, want nothing due", out)
	}
}

func TestDue_ListsEnabledSchedules(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pulse.db")
	enableWater(t, dbPath)

	out, err := executeCmd(t, dbPath, "due", "2024-03-04", "--json")
	if err != nil {
		t.Fatalf("due error = %v", err)
	}
	var day types.CalendarDay
	if err := json.Unmarshal([]byte(out), &day); err != nil {
		t.Fatalf("invalid JSON output %q: %v", out, err)
	}
	if len(day.Schedules) != 1 || day.Schedules[0].ID != "default-water" {
		t.Errorf("schedules = %+v, want default-water", day.Schedules)
	}

	out, err = executeCmd(t, dbPath, "due", "2024-03-04")
	if err != nil {
		t.Fatalf("due error = %v", err)
	}
	if !strings.Contains(out, "10:00") || !strings.Contains(out, "default-water") {
		t.Errorf("table output = %q, want 10:00 default-water row", out)
	}
}

func TestDue_InvalidDate(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pulse.db")

	if _, err := executeCmd(t, dbPath, "due", "March 4th"); err == nil {
		t.Error("due with invalid date expected error, got nil")
	}
}

func TestTick_FiresOncePerDay(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pulse.db")
	enableWater(t, dbPath)

	out, err := executeCmd(t, dbPath, "tick", "--at", "2024-03-04T10:30:00Z", "--json")
	if err != nil {
		t.Fatalf("tick error = %v", err)
	}
	var resp types.TickResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("invalid JSON output %q: %v", out, err)
	}
	if len(resp.Alerts) != 1 || resp.Alerts[0].ScheduleID != "default-water" {
		t.Fatalf("alerts = %+v, want one default-water alert", resp.Alerts)
	}

	out, err = executeCmd(t, dbPath, "tick", "--at", "2024-03-04T11:00:00Z")
	if err != nil {
		t.Fatalf("tick error = %v", err)
	}
	if !strings.Contains(out, "No alerts due.") {
		t.Errorf("second tick output = %q, want no alerts", out)
	}
}

func TestTick_InvalidAt(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pulse.db")

	if _, err := executeCmd(t, dbPath, "tick", "--at", "noon"); err == nil {
		t.Error("tick with invalid --at expected error, got nil")
	}
}

func TestGoals_ListAndRefresh(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pulse.db")

	out, err := executeCmd(t, dbPath, "goals", "list")
	if err != nil {
		t.Fatalf("goals list error = %v", err)
	}
	if !strings.Contains(out, "No goals found.") {
		t.Errorf("output = %q, want no goals", out)
	}

	var goalID string
	seed(t, dbPath, func(_ *reminder.Engine, g *goals.Scheduler) {
		goal, err := g.CreateGoal(context.Background(), types.NewHealthGoal{
			Title:       "Sleep 8h",
			Category:    types.GoalSleep,
			TargetValue: 8,
			TargetDate:  types.DateOf(time.Now().AddDate(0, 0, -2)),
		})
		if err != nil {
			t.Fatalf("CreateGoal() error = %v", err)
		}
		goalID = goal.ID
	})

	out, err = executeCmd(t, dbPath, "goals", "refresh", "--json")
	if err != nil {
		t.Fatalf("goals refresh error = %v", err)
	}
	var resp types.GoalRefreshResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("invalid JSON output %q: %v", out, err)
	}
	if len(resp.Changed) != 1 || resp.Changed[0].ID != goalID || resp.Changed[0].Status != types.GoalOverdue {
		t.Fatalf("changed = %+v, want %s overdue", resp.Changed, goalID)
	}

	out, err = executeCmd(t, dbPath, "goals", "list")
	if err != nil {
		t.Fatalf("goals list error = %v", err)
	}
	if !strings.Contains(out, goalID) || !strings.Contains(out, "overdue") {
		t.Errorf("list output = %q, want %s overdue", out, goalID)
	}
}

func TestSourcesAreGofmted(t *testing.T) {
	files, err := filepath.Glob("*.go")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	for _, name := range files {
		src, err := os.ReadFile(name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		formatted, err := format.Source(src)
		if err != nil {
			t.Fatalf("format %s: %v", name, err)
		}
		if !bytes.Equal(src, formatted) {
			t.Errorf("%s is not gofmt-formatted", name)
		}
	}
}

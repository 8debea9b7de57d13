package store

import (
	"context"

	"github.com/hyperengineering/pulse/internal/types"
)

// Logical record keys.
const (
	KeyPreferences = "preferences"
	KeyAlerts      = "alerts"
	KeyGoals       = "goals"
	KeyCheckIns    = "checkins"
)

// Tx gives get/set access to the logical records inside one transaction.
// Reads tolerate corrupt data: unreadable entries are dropped and logged,
// an unreadable record falls back to its default.
type Tx interface {
	Preferences() (types.Preferences, error)
	SetPreferences(p types.Preferences) error
	Alerts() ([]types.Alert, error)
	SetAlerts(alerts []types.Alert) error
	Goals() ([]types.HealthGoal, error)
	SetGoals(goals []types.HealthGoal) error
	CheckIns() ([]types.GoalCheckIn, error)
	SetCheckIns(checkIns []types.GoalCheckIn) error
}

// Store defines the interface contract for persisted engine state.
//
// Update runs fn in a read-write transaction: all sets commit together or not
// at all. A set whose record changed since this transaction read it fails
// with ErrConflict. View runs fn read-only; sets inside View return
// ErrReadOnly.
type Store interface {
	View(ctx context.Context, fn func(tx Tx) error) error
	Update(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

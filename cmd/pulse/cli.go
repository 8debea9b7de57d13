package main

import (
	"context"
	"encoding/json"
	"io"
	"text/tabwriter"

	"github.com/hyperengineering/pulse/internal/config"
)

var (
	dbPathOverride string
	jsonOutput     bool
)

// openOffline loads configuration without requiring an API key and wires
// the engine over the local database.
func openOffline(ctx context.Context) (*app, error) {
	cfg, err := config.LoadOffline()
	if err != nil {
		return nil, err
	}
	if dbPathOverride != "" {
		cfg.Database.Path = dbPathOverride
	}
	return newApp(ctx, cfg, false)
}

// printJSON marshals v to JSON and writes to the given writer.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newTabWriter returns a configured tabwriter for aligned columns.
func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

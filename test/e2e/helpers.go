// Package e2e drives a full Pulse stack (SQLite store, engine, HTTP API)
// through the Go client.
package e2e

import (
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hyperengineering/pulse/internal/api"
	"github.com/hyperengineering/pulse/internal/goals"
	"github.com/hyperengineering/pulse/internal/metrics"
	"github.com/hyperengineering/pulse/internal/reminder"
	"github.com/hyperengineering/pulse/internal/store"
	"github.com/hyperengineering/pulse/pkg/client"
)

const testAPIKey = "e2e-secret"

// fakeClock is a settable clock shared by the engine and goal scheduler.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// testServer is one running stack.
type testServer struct {
	Client  *client.Client
	Engine  *reminder.Engine
	Goals   *goals.Scheduler
	Metrics *metrics.Metrics
	Clock   *fakeClock
	DBPath  string

	srv *httptest.Server
	db  *store.SQLiteStore
}

// startServer starts a stack on a fresh database.
func startServer(t *testing.T, clock *fakeClock) *testServer {
	t.Helper()
	return startServerAt(t, filepath.Join(t.TempDir(), "pulse.db"), clock)
}

// startServerAt starts a stack on dbPath. The server is stopped on test
// cleanup unless Stop is called first.
func startServerAt(t *testing.T, dbPath string, clock *fakeClock) *testServer {
	t.Helper()

	db, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	m := metrics.New()
	e := reminder.NewEngine(db, reminder.WithClock(clock.Now), reminder.WithMetrics(m))
	g := goals.NewScheduler(db, goals.WithClock(clock.Now), goals.WithMetrics(m))
	srv := httptest.NewServer(api.NewRouter(api.NewHandler(e, g, m, testAPIKey, "e2e")))

	c, err := client.New(client.Config{BaseURL: srv.URL, APIKey: testAPIKey, Timeout: 5 * time.Second})
	if err != nil {
		srv.Close()
		db.Close()
		t.Fatalf("create client: %v", err)
	}

	ts := &testServer{
		Client:  c,
		Engine:  e,
		Goals:   g,
		Metrics: m,
		Clock:   clock,
		DBPath:  dbPath,
		srv:     srv,
		db:      db,
	}
	t.Cleanup(ts.Stop)
	return ts
}

// Stop shuts down the HTTP server and closes the store. It is idempotent.
func (s *testServer) Stop() {
	if s.srv == nil {
		return
	}
	s.srv.Close()
	s.db.Close()
	s.srv = nil
}

// scrapeMetrics returns the Prometheus exposition text served at /metrics.
func (s *testServer) scrapeMetrics(t *testing.T) string {
	t.Helper()
	resp, err := http.Get(s.srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("scrape metrics: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	return string(body)
}

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

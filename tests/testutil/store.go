// Package testutil provides shared helpers for package tests: a throwaway
// SQLite backend and a scriptable fake remote client.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/evolvedge/evolvedge/internal/remote"
)

// NewTestClient creates a SQLite backend in a per-test temp directory with
// all migrations applied. A file rather than :memory: because the pool can
// hand out more than one connection and each in-memory connection is its
// own database. Closed automatically when the test completes.
func NewTestClient(t *testing.T) *remote.SQLiteClient {
	t.Helper()

	c, err := remote.NewSQLiteClient(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("creating test client: %v", err)
	}

	t.Cleanup(func() {
		if err := c.Close(); err != nil {
			t.Errorf("closing test client: %v", err)
		}
	})

	return c
}

// Package testutil provides shared test helpers for wiring stores, link
// indexes and the record service.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/lifecycle"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/recordservice"
	"github.com/starford/othala/internal/storage"
)

// TestAgent is the agent address used by TestService.
const TestAgent models.Address = "test-agent"

// TestDB creates a temporary SQLite link index that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "othala-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a temporary store directory with a storage.Provider.
func TestStore(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// TestService wires a record service over a temporary store and index.
// notifier may be nil.
func TestService(t *testing.T, notifier lifecycle.Notifier) *recordservice.Service {
	t.Helper()
	_, store := TestStore(t)
	svc, err := recordservice.New(lifecycle.Deps{
		Store:    store,
		Links:    TestDB(t),
		Agent:    TestAgent,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Notifier: notifier,
	})
	if err != nil {
		t.Fatal(err)
	}
	return svc
}

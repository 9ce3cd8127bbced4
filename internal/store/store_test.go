package store

import (
	"context"
	"syscall"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// exerciseStore runs the contract every backend must satisfy.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "client-a", "user"); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, "client-a", "user", `{"loggedIn":true}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Set(ctx, "client-a", "darkMode", "false"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Set(ctx, "client-a", "darkMode", "true"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Set(ctx, "client-b", "darkMode", "false"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v, ok, err := s.Get(ctx, "client-a", "darkMode")
	if err != nil || !ok || v != "true" {
		t.Errorf("expected overwritten value true, got %q ok=%v err=%v", v, ok, err)
	}
	v, _, _ = s.Get(ctx, "client-b", "darkMode")
	if v != "false" {
		t.Errorf("namespaces leaked: client-b darkMode=%q", v)
	}

	keys, err := s.Keys(ctx, "client-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"darkMode", "user"}, keys); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}

	if err := s.Delete(ctx, "client-a", "user"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Delete(ctx, "client-a", "never-set"); err != nil {
		t.Errorf("deleting a missing key should not fail: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "client-a", "user"); ok {
		t.Error("expected user key to be deleted")
	}
}

func TestInMemoryStore(t *testing.T) {
	exerciseStore(t, NewInMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(WithSQLiteDSN(t.TempDir() + "/kv.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestPostgresStore(t *testing.T) {
	// This test requires a running PostgreSQL instance.
	// Set the DATABASE_URL environment variable for connection string.
	connStr := getenvOrSkip(t, "DATABASE_URL")
	pgStore, err := NewPostgresStore(WithPostgresDSN(connStr))
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	defer pgStore.Close()
	pgStore.db.Exec("DELETE FROM client_kv WHERE namespace IN ('client-a', 'client-b')")
	exerciseStore(t, pgStore)
}

func TestSQLiteStoreMissingDSN(t *testing.T) {
	if _, err := NewSQLiteStore(); err == nil {
		t.Error("expected error for missing DSN")
	}
}

func TestDetectDSNType(t *testing.T) {
	tests := map[string]string{
		"postgres://u:p@localhost/db": "postgres",
		"postgresql://localhost/db":   "postgres",
		"host=localhost user=farm":    "postgres",
		"/var/lib/farmgenius/farm.db": "sqlite3",
		"file:farm.db?cache=shared":   "sqlite3",
	}
	for dsn, want := range tests {
		if got := DetectDSNType(dsn); got != want {
			t.Errorf("DetectDSNType(%q) = %q, want %q", dsn, got, want)
		}
	}
}

func TestOpenWithoutDSNIsInMemory(t *testing.T) {
	s, err := Open()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.(*InMemoryStore); !ok {
		t.Errorf("expected *InMemoryStore, got %T", s)
	}
}

func TestLocalStorageScopesNamespace(t *testing.T) {
	ctx := context.Background()
	st := NewInMemoryStore()
	a := NewLocalStorage(st, "a")
	b := NewLocalStorage(st, "b")

	if err := a.SetItem(ctx, "language", "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok, _ := b.GetItem(ctx, "language"); ok {
		t.Error("expected b not to see a's item")
	}
	snap, err := a.Snapshot(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(map[string]string{"language": "hi"}, snap); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
	if err := a.RemoveItem(ctx, "language"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok, _ := a.GetItem(ctx, "language"); ok {
		t.Error("expected item removed")
	}
}

func getenvOrSkip(t *testing.T, key string) string {
	v := ""
	if val, ok := syscall.Getenv(key); ok {
		v = val
	}
	if v == "" {
		t.Skipf("env %s not set", key)
	}
	return v
}

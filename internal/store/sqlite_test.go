package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"polymarket-execution/internal/config"
)

func TestNewSQLite_InMemory(t *testing.T) {
	s, err := NewSQLite(config.DatabaseConfig{InMemory: true})
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.Migrate(ctx, `CREATE TABLE t (v INTEGER)`, `INSERT INTO t (v) VALUES (7)`); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	var v int
	if err := s.DB().QueryRowContext(ctx, `SELECT v FROM t`).Scan(&v); err != nil {
		t.Fatalf("query: %v", err)
	}
	if v != 7 {
		t.Fatalf("expected 7, got %d", v)
	}
}

func TestMigrate_RollsBackOnFailure(t *testing.T) {
	s, err := NewSQLite(config.DatabaseConfig{InMemory: true})
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.Migrate(ctx, `CREATE TABLE t (v INTEGER)`, `NOT VALID SQL`); err == nil {
		t.Fatalf("expected migration error")
	}
	if _, err := s.DB().ExecContext(ctx, `SELECT * FROM t`); err == nil {
		t.Fatalf("table should not exist after rollback")
	}
}

func TestNewSQLite_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.db")
	s, err := NewSQLite(config.DatabaseConfig{Path: path, MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	defer s.Close()

	if err := s.Migrate(context.Background(), `CREATE TABLE t (v INTEGER)`); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected database file: %v", err)
	}
}

func TestNewSQLite_RequiresPath(t *testing.T) {
	if _, err := NewSQLite(config.DatabaseConfig{}); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

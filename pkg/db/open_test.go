package db

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/smith3v/sprachninja/pkg/config"
	"github.com/smith3v/sprachninja/pkg/logger"
)

func TestOpenSQLiteMigratesSchema(t *testing.T) {
	logger.SetLogLevel(logger.ERROR)
	path := filepath.Join(t.TempDir(), "store.db")

	gdb, err := Open(config.DatabaseConfig{Driver: config.DriverSQLite, Path: path}, "silent")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() {
		if err := Close(gdb); err != nil {
			t.Fatalf("failed to close database: %v", err)
		}
	})

	for _, model := range Models() {
		if !gdb.Migrator().HasTable(model) {
			t.Fatalf("expected table for %T", model)
		}
	}
	if !gdb.Migrator().HasIndex(&RecentQuestion{}, "idx_recent_question_level") {
		t.Fatalf("expected unique index on recent questions")
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(config.DatabaseConfig{Driver: "oracle"}, ""); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestPostgresDSN(t *testing.T) {
	dsn := postgresDSN(config.DatabaseConfig{
		Host:     "db",
		User:     "ninja",
		Password: "secret",
		DBName:   "sprachninja",
		Port:     5433,
		SSLMode:  "require",
	})
	for _, part := range []string{"host=db", "user=ninja", "password=secret", "dbname=sprachninja", "port=5433", "sslmode=require"} {
		if !strings.Contains(dsn, part) {
			t.Fatalf("expected %q in dsn %q", part, dsn)
		}
	}
}

package testutil

import (
	"strings"
	"testing"

	"github.com/smith3v/sprachninja/pkg/config"
	"github.com/smith3v/sprachninja/pkg/db"
	"gorm.io/gorm"
)

// SetupTestDB opens a migrated in-memory sqlite store private to t.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	gdb, err := db.Open(config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   "file:" + name + "?mode=memory&cache=shared",
	}, "silent")
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}

	t.Cleanup(func() {
		if err := db.Close(gdb); err != nil {
			t.Fatalf("failed to close database: %v", err)
		}
	})
	return gdb
}

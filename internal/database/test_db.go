package database

import (
	"fmt"
	"strings"
	"testing"

	"letter-log-system/internal/config"

	"gorm.io/gorm"
)

// OpenTest returns a migrated in-memory SQLite database private to t.
func OpenTest(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := Open(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { Close(db) })
	return db
}

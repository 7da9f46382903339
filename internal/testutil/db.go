// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/prockx/storefront/internal/models"
	"github.com/prockx/storefront/pkg/db"
)

// PostgresEnv points tests at a real Postgres instead of in-memory SQLite.
const PostgresEnv = "STOREFRONT_TEST_DATABASE_URL"

var tables = []string{
	"order_items",
	"orders",
	"refresh_tokens",
	"users",
	"products",
}

// NewDB returns a migrated database that is emptied when the test ends.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var (
		gdb *gorm.DB
		err error
	)
	if dsn := os.Getenv(PostgresEnv); dsn != "" {
		gdb, err = db.OpenPostgres(ctx, dsn)
	} else {
		gdb, err = db.OpenSQLite(ctx, ":memory:")
	}
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	if err := gdb.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	truncate(gdb)
	t.Cleanup(func() {
		truncate(gdb)
		_ = db.Close(gdb)
	})
	return gdb
}

func truncate(gdb *gorm.DB) {
	if gdb.Dialector.Name() == "postgres" {
		gdb.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(tables, ", ")))
		return
	}
	for _, tbl := range tables {
		gdb.Exec("DELETE FROM " + tbl)
	}
}

// Package dbtest はテスト用のインメモリSQLiteを用意する。
package dbtest

import (
	"fmt"
	"regexp"
	"sync/atomic"
	"testing"

	"stockledger/internal/config"
	"stockledger/internal/infra/db"

	"gorm.io/gorm"
)

var (
	seq      atomic.Int64
	unsafeRe = regexp.MustCompile(`[^A-Za-z0-9_]`)
)

// New はテストごとに独立したDBを作り、マイグレーションまで済ませて返す。
func New(t testing.TB) *gorm.DB {
	t.Helper()

	name := unsafeRe.ReplaceAllString(t.Name(), "_")
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))

	gormDB, err := db.Connect(config.DBConfig{Driver: "sqlite", SQLitePath: dsn})
	if err != nil {
		t.Fatalf("db.Connect failed: %v", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		t.Fatalf("db.Migrate failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(gormDB) })
	return gormDB
}

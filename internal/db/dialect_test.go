package db

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openMemoryDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:dialect_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	return conn
}

func TestDialectDetection(t *testing.T) {
	t.Parallel()

	conn := openMemoryDB(t)
	if !IsSQLite(conn) {
		t.Fatalf("dialect = %q, want sqlite", DialectName(conn))
	}
	if IsSQLite(nil) {
		t.Fatalf("nil connection reported as sqlite")
	}
}

func TestCaseInsensitiveLike(t *testing.T) {
	t.Parallel()

	conn := openMemoryDB(t)
	if expr := CaseInsensitiveLikeExpr(conn, "name"); expr != "LOWER(name) LIKE ?" {
		t.Fatalf("sqlite expr = %q", expr)
	}
	if got := NormalizeLikePattern(conn, "%LaVaNda%"); got != "%lavanda%" {
		t.Fatalf("sqlite pattern = %q", got)
	}
}

func TestDetectDialectFromDSN(t *testing.T) {
	t.Parallel()

	for dsn, want := range map[string]string{
		"postgres://user:pw@localhost/herbario": DialectPostgres,
		"postgresql://localhost/herbario":       DialectPostgres,
		"host=localhost dbname=herbario":        DialectPostgres,
		"file:data/herbario.db":                 DialectSQLite,
		"data/herbario.db":                      DialectSQLite,
	} {
		got, errDetect := detectDialectFromDSN(dsn)
		if errDetect != nil {
			t.Fatalf("detect(%q): %v", dsn, errDetect)
		}
		if got != want {
			t.Fatalf("detect(%q) = %q, want %q", dsn, got, want)
		}
	}

	if _, errDetect := detectDialectFromDSN("mysql://localhost/x"); errDetect == nil {
		t.Fatalf("unsupported dsn accepted")
	}
}

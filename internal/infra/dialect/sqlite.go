package dialect

import (
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3" // register the sqlite3 driver
)

// sqliteDialect targets SQLite. Used for small deployments and as the
// in-process database in tests.
type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) DriverName() string { return "sqlite3" }

func (sqliteDialect) DSN(url string) string {
	// The driver takes a bare path or a file: URI; strip our scheme.
	s := strings.TrimPrefix(url, "sqlite://")
	s = strings.TrimPrefix(s, "sqlite:")
	return s
}

func (sqliteDialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d sqliteDialect) InsertStatement(table string, columns []string) string {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.QuoteIdentifier(c)
		placeholders[i] = "?"
	}
	return fmt.Sprintf(
		"INSERT OR IGNORE INTO %s (%s) VALUES (%s)",
		d.QuoteIdentifier(table),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
	)
}

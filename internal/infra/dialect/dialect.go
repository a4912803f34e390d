// Package dialect maps a target database to its driver and SQL flavor.
// A dialect is resolved once per writer construction, either by explicit
// name or by auto-detection from the connection URL.
package dialect

import (
	"fmt"
	"strings"
)

// Dialect describes how to address one target database family.
type Dialect interface {
	// Name is the registry key, e.g. "postgres".
	Name() string

	// DriverName is the database/sql driver to open connections with.
	DriverName() string

	// DSN translates the configured connection URL into the form the
	// driver expects.
	DSN(url string) string

	// QuoteIdentifier quotes a table or column name.
	QuoteIdentifier(name string) string

	// InsertStatement builds the per-record insert for table and columns,
	// with driver-appropriate placeholders. Redelivered records must not
	// produce duplicate rows, so the statement ignores conflicts on the
	// record coordinates.
	InsertStatement(table string, columns []string) string
}

var registry = map[string]func() Dialect{
	"postgres": func() Dialect { return postgresDialect{} },
	"sqlite":   func() Dialect { return sqliteDialect{} },
}

// Get returns the dialect registered under name.
func Get(name string) (Dialect, error) {
	newDialect, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown dialect %q", name)
	}
	return newDialect(), nil
}

// FindBestFor auto-detects a dialect from the connection URL scheme.
func FindBestFor(url string) (Dialect, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return postgresDialect{}, nil
	case strings.HasPrefix(url, "sqlite://"), strings.HasPrefix(url, "sqlite:"), strings.HasPrefix(url, "file:"):
		return sqliteDialect{}, nil
	default:
		return nil, fmt.Errorf("no dialect matches connection URL %q; set the dialect name explicitly", url)
	}
}

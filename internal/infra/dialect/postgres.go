package dialect

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// postgresDialect targets PostgreSQL through the pgx stdlib driver.
type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) DriverName() string { return "pgx" }

func (postgresDialect) DSN(url string) string {
	// pgx accepts postgres:// and postgresql:// URLs as-is.
	return url
}

func (postgresDialect) QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

func (d postgresDialect) InsertStatement(table string, columns []string) string {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.QuoteIdentifier(c)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (kafka_topic, kafka_partition, kafka_offset) DO NOTHING",
		d.QuoteIdentifier(table),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
	)
}

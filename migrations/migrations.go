// Package migrations embeds the goose migrations for the connector's own
// destination schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

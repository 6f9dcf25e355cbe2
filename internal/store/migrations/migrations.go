// Package migrations embeds the goose SQL migrations for the facts database.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

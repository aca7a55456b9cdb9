// Package migrations embeds the versioned Postgres schema files
// (NNN_name.up.sql / NNN_name.down.sql).
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS

// Package migrations embeds the SQL migrations so tests and the server can apply
// them without a checkout of this directory.
package migrations

import "embed"

// FS holds every *.up.sql and *.down.sql file
//
//go:embed *.sql
var FS embed.FS

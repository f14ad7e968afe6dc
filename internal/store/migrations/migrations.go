// Package migrations embeds the schema migration files so cmd/migrate can
// apply them without depending on a filesystem path at runtime.
package migrations

import "embed"

// FS holds the versioned *.up.sql / *.down.sql pairs for golang-migrate's
// iofs source.
//
//go:embed *.sql
var FS embed.FS

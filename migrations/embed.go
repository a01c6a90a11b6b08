// Package migrations carries the request journal schema, applied at startup
// by database.NewDB.
package migrations

import "embed"

// FS is the set of numbered *.up.sql / *.down.sql journal migrations.
//
//go:embed *.sql
var FS embed.FS

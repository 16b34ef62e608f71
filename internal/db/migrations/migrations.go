// Package migrations embeds the SQL schema migrations of the run ledger.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

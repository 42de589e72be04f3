// Package migrations embeds the SQL schema for the actuation audit store.
package migrations

import "embed"

// FS holds every *.sql file in this directory at its root.
//
//go:embed *.sql
var FS embed.FS

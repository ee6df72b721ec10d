// Package migrations хранит SQL схемы чата; применяются repository.Migrate при старте.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

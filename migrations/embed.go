// Package migrations holds the goose SQL migrations of the store schema.
package migrations

import "embed"

// FS contains every migration file, applied in version order by goose
//
//go:embed *.sql
var FS embed.FS

package migrations

import "embed"

// Files exposes the SQL migrations ordered lexicographically.
//
//go:embed *.sql
var Files embed.FS

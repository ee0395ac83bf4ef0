// Package db embeds the schema migrations and seed assets shipped with the
// server binary.
package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS

//go:embed seed/*.*
var SeedFiles embed.FS

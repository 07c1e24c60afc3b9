// Package db embeds the SQL migrations applied at server start.
package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS

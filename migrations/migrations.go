// Package migrations embeds the SQL migrations of the shared media tables, one
// directory per database driver. Per-owner tables are rendered by data.OwnerSchema.
package migrations

import "embed"

//go:embed sqlite3 mysql postgres
var FS embed.FS

// Package migrations embeds the versioned schema files for every database
// tally talks to.
package migrations

import "embed"

//go:embed sqlite/*.sql postgres/*.sql shared/*.sql
var FS embed.FS

// Package appfs holds the files compiled into the binaries:
// SQL migrations, email and page templates and static assets.
package appfs

import "embed"

//go:embed migrations all:templates assets
var FS embed.FS

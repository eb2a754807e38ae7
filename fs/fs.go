package appfs

import "embed"

// FS holds the files shipped inside the binaries: SQL migrations, email templates and assets.
//go:embed migrations all:templates assets
var FS embed.FS

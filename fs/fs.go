package appfs

import "embed"

// FS holds the files shipped inside the binaries.
//go:embed migrations/*.sql templates/email/* assets/* seed/*.yaml
var FS embed.FS

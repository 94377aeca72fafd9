package migrate

import "embed"

//go:embed migrations/*.sql
var embedded embed.FS

// EmbeddedDir selects the migrations compiled into the binary.
const EmbeddedDir = "embedded"

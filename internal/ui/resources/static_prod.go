//go:build !dev

package resources

import (
	"embed"
	"io/fs"
)

//go:embed static/*
var staticFS embed.FS

// Embedded assets only change with the binary.
const cacheControl = "public, max-age=31536000, immutable"

func staticFiles() fs.FS {
	fsys, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err) // static/ is embedded at build time
	}
	return fsys
}

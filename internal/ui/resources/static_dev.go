//go:build dev

package resources

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
)

// Dev builds revalidate on every request so stylesheet edits show up on reload.
const cacheControl = "no-cache"

// staticFiles reads assets from the source tree, located relative to this
// file so the binary can run from any directory.
func staticFiles() fs.FS {
	dir := StaticDirectoryPath
	if _, filename, _, ok := runtime.Caller(0); ok {
		dir = filepath.Join(filepath.Dir(filename), "static")
	}
	slog.Info("static assets served from filesystem", "path", dir)
	return os.DirFS(dir)
}

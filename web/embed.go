package web

import (
	"embed"
	"io/fs"
)

// staticFS embeds the dashboard build output (web/dist) into the Go
// binary so the server ships as a single artifact.
//
//go:embed all:dist
var staticFS embed.FS

// FS returns the embedded filesystem containing the frontend static files.
func FS() (fs.FS, error) {
	// Strip the "dist" prefix to serve files from root
	return fs.Sub(staticFS, "dist")
}

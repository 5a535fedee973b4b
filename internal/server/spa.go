package server

import (
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
)

// handleWebClient serves a browser client from dir. Paths that match no
// file fall back to index.html so the client can do its own routing;
// unknown /api/ paths still get a JSON 404.
func handleWebClient(dir string) http.HandlerFunc {
	root := os.DirFS(dir)
	fileServer := http.FileServerFS(root)

	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			writeError(w, http.StatusNotFound, "not found")
			return
		}

		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if info, err := fs.Stat(root, name); err == nil && !info.IsDir() {
			fileServer.ServeHTTP(w, r)
			return
		}

		http.ServeFileFS(w, r, root, "index.html")
	}
}

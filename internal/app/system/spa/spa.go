// Package spa serves a single-page application build: existing files are
// served as-is and every other path gets index.html so client-side routing
// works on reload.
package spa

import (
	"net/http"
	"path"
	"strings"

	"github.com/spf13/afero"
)

const indexFile = "index.html"

// Handler serves the build rooted at dir on fsys.
func Handler(fsys afero.Fs, dir string) http.Handler {
	root := afero.NewBasePathFs(fsys, dir)
	files := http.FileServer(afero.NewHttpFs(root))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		name := path.Clean("/" + r.URL.Path)
		if name != "/" && !strings.HasSuffix(name, "/"+indexFile) {
			if fi, err := root.Stat(name); err == nil && !fi.IsDir() {
				files.ServeHTTP(w, r)
				return
			}
		}

		serveIndex(w, r, root)
	})
}

func serveIndex(w http.ResponseWriter, r *http.Request, root afero.Fs) {
	f, err := root.Open("/" + indexFile)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, indexFile, fi.ModTime(), f)
}

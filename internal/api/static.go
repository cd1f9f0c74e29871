package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/yegors/handoff-board/pkg/logger"
)

// StaticFileHandler serves the board's viewer files without caching, so an edited page shows up on
// the next reload
type StaticFileHandler struct {
	root   http.Dir
	logger *logger.Logger
}

// NewStaticFileHandler creates a new static file handler rooted at staticDir
func NewStaticFileHandler(staticDir string, log *logger.Logger) *StaticFileHandler {
	return &StaticFileHandler{
		root:   http.Dir(staticDir),
		logger: log.Named("static-handler"),
	}
}

// ServeHTTP serves one viewer file. Directories resolve to their index.html and are never listed.
func (h *StaticFileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// path.Clean on a rooted path removes any ".." that would escape the root
	name := path.Clean("/" + r.URL.Path)
	if hasDotDotSegment(r.URL.Path) {
		h.logger.Warn("Rejected path traversal attempt", logger.String("requested_path", r.URL.Path))
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	full := filepath.Join(string(h.root), filepath.FromSlash(name))
	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			h.logger.Debug("File not found", logger.String("path", full))
			http.NotFound(w, r)
			return
		}
		h.logger.Error("Failed to stat file", logger.Error(err), logger.String("path", full))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if info.IsDir() {
		full = filepath.Join(full, "index.html")
		if _, err := os.Stat(full); err != nil {
			h.logger.Debug("Directory listing not allowed", logger.String("path", full))
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")

	h.logger.Debug("Serving static file",
		logger.String("requested_path", r.URL.Path),
		logger.String("file_path", full))

	http.ServeFile(w, r, full)
}

// hasDotDotSegment reports whether any slash-separated segment is "..". Names that merely contain
// two dots, such as app..min.js, are ordinary files.
func hasDotDotSegment(p string) bool {
	for _, seg := range strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return true
		}
	}
	return false
}

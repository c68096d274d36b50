// Package httpserver exposes a vfs.FileSystem as a read-only static
// file server: GET /<path> -> 200/404/500, no directory listing.
package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kairos-io/finiky/vfs"
)

// contentTypes maps a lowercased file extension (without the dot) to
// the Content-Type emitted for it. Anything unlisted, including the
// PXE "no extension" boot filenames, falls back to octet-stream.
var contentTypes = map[string]string{
	"html": "text/html",
	"htm":  "text/html",
	"css":  "text/css",
	"js":   "application/javascript",
	"json": "application/json",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"svg":  "image/svg+xml",
	"ico":  "image/x-icon",
	"txt":  "text/plain",
	"iso":  "application/octet-stream",
	"img":  "application/octet-stream",
	"efi":  "application/octet-stream",
	"0":    "application/octet-stream",
}

// New returns a handler serving fs over GET /<path>.
func New(fs vfs.FileSystem, log zerolog.Logger) http.Handler {
	return &handler{fs: fs, log: log}
}

type handler struct {
	fs  vfs.FileSystem
	log zerolog.Logger
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")
	log := h.log.With().Str("path", path).Str("remote", r.RemoteAddr).Logger()

	if !h.fs.Exists(path) {
		log.Warn().Msg("http: file not found")
		http.NotFound(w, r)
		return
	}

	data, err := h.fs.Read(path)
	if err != nil {
		log.Error().Err(err).Msg("http: error reading file")
		http.Error(w, "Error reading file", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", guessContentType(path))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Warn().Err(err).Msg("http: write failed")
	}
}

func guessContentType(path string) string {
	ext := path
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		ext = path[i+1:]
	}
	if ct, ok := contentTypes[strings.ToLower(ext)]; ok {
		return ct
	}
	return "application/octet-stream"
}

package server

import (
	"net/http"
	"os"
)

// handleFile serves one cached file after verifying its access token. Every
// failure mode collapses to 404 so the endpoint leaks nothing about why a
// token was refused.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	tok := r.PathValue("token")

	key, kind, err := s.tokens.Verify(tok)
	if err != nil {
		s.logger.Warn("file token refused", "error", err)
		http.NotFound(w, r)
		return
	}

	entry, err := s.cache.Resolve(r.Context(), key, kind)
	if err != nil {
		s.logger.Warn("file gateway miss", "key", key.ShortString(), "kind", kind, "error", err)
		http.NotFound(w, r)
		return
	}

	f, err := os.Open(entry.Path)
	if err != nil {
		s.logger.Warn("file gateway open failed", "path", entry.Path, "error", err)
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", kind.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+kind.Filename(key)+`"`)
	http.ServeContent(w, r, kind.Filename(key), entry.CreatedAt, f)
}

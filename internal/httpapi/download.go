package httpapi

import (
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/ROTl24/ai-web-generator/internal/apperr"
	"github.com/ROTl24/ai-web-generator/internal/archive"
)

// handleDownload streams one version of an app as a zip. Without a
// version query the active version is packed.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	genType, err := s.opts.Ledger.AppGenType(id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	version := s.opts.Ledger.ResolveActiveVersion(id)
	if raw := r.URL.Query().Get("version"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			s.writeError(w, apperr.Validation("invalid version %q", raw))
			return
		}
		version = v
	}

	dir := s.opts.Ledger.BuildVersionDir(genType, id, version)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		s.writeError(w, apperr.NotFound("no code for app %d version %d", id, version))
		return
	}

	name := archive.FileName(string(genType), id, version)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	n, err := archive.WriteZip(r.Context(), w, dir, archive.Excluded)
	if err != nil {
		// Headers are out; the client sees a truncated archive.
		s.logger.Warn("download failed", "app_id", id, "version", version, "error", err)
		return
	}
	s.logger.Info("project downloaded", "app_id", id, "version", version, "files", n)
}

package httpapi

import (
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ROTl24/ai-web-generator/internal/versions"
)

// previewKey is a parsed deploy key of the form {genType}_{appId}[_v{n}].
type previewKey struct {
	preview bool
	genType versions.GenType
	appID   int64
	version int
}

// keyPrefixes are the generation types a preview key may start with.
var keyPrefixes = []versions.GenType{versions.GenMultiFile, versions.GenVue, versions.GenHTML}

func parseDeployKey(key string) previewKey {
	for _, gt := range keyPrefixes {
		rest, ok := strings.CutPrefix(key, string(gt)+"_")
		if !ok {
			continue
		}
		pk := previewKey{preview: true, genType: gt}
		idText := rest
		if before, after, found := strings.Cut(rest, "_v"); found {
			idText = before
			if n, err := strconv.Atoi(after); err == nil {
				pk.version = n
			}
		}
		if id, err := strconv.ParseInt(idText, 10, 64); err == nil {
			pk.appID = id
		}
		return pk
	}
	return previewKey{}
}

func contentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html":
		return "text/html; charset=UTF-8"
	case ".css":
		return "text/css; charset=UTF-8"
	case ".js":
		return "application/javascript; charset=UTF-8"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".svg":
		return "image/svg+xml"
	case ".json", ".map":
		return "application/json; charset=UTF-8"
	case ".ico":
		return "image/x-icon"
	case ".woff":
		return "font/woff"
	case ".woff2":
		return "font/woff2"
	}
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	deployKey := r.PathValue("deployKey")
	pk := parseDeployKey(deployKey)
	vuePreview := pk.preview && pk.genType == versions.GenVue

	rest := strings.TrimPrefix(r.URL.Path, "/static/"+deployKey)
	if vuePreview {
		switch {
		case rest == "/dist" || rest == "/dist/":
			rest = "/"
		case strings.HasPrefix(rest, "/dist/"):
			rest = strings.TrimPrefix(rest, "/dist")
		}
	}
	if rest == "" {
		target := r.URL.Path + "/"
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, target, http.StatusMovedPermanently)
		return
	}
	if rest == "/" {
		rest = "/index.html"
	}

	var base string
	if pk.preview {
		version := pk.version
		if q := r.URL.Query().Get("version"); q != "" {
			if n, err := strconv.Atoi(q); err == nil {
				version = n
			}
		}
		if version == 0 && pk.appID > 0 {
			version = s.opts.Ledger.ResolveActiveVersion(pk.appID)
		}
		if pk.appID > 0 && version > 0 {
			base = s.opts.Ledger.BuildVersionDir(pk.genType, pk.appID, version)
		} else {
			base = filepath.Join(s.opts.Ledger.OutputRoot(), deployKey)
		}
		if vuePreview {
			base = filepath.Join(base, "dist")
		}
	} else {
		if s.opts.DeployRoot == "" {
			http.NotFound(w, r)
			return
		}
		base = filepath.Join(s.opts.DeployRoot, deployKey)
	}

	file := filepath.Join(base, filepath.FromSlash(path.Clean(rest)))
	info, err := os.Stat(file)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	f, err := os.Open(file)
	if err != nil {
		s.logger.Error("opening static file", "file", file, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", contentType(file))
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

package server

import (
	"bytes"
	"encoding/json"
	"html/template"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"time"

	"git.home.luguber.info/inful/mapexporter/internal/artifact"
	"git.home.luguber.info/inful/mapexporter/internal/logfields"
	"git.home.luguber.info/inful/mapexporter/internal/server/responses"
	"git.home.luguber.info/inful/mapexporter/internal/version"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleViewer)
	mux.HandleFunc("GET /api/manifest", s.handleManifest)
	mux.HandleFunc("GET /api/regions/{region}", s.handleRegion)
	mux.HandleFunc("GET /regions/{region}/{file...}", s.handleFile)
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.lr != nil {
		mux.Handle("GET /livereload", s.lr)
		mux.HandleFunc("GET /livereload.js", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
			_, _ = w.Write([]byte(LiveReloadScript))
		})
	}
	if s.metricsHandler != nil {
		mux.Handle("GET /metrics", s.metricsHandler)
	}
	return mux
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.Store().Manifest())
}

func (s *Server) handleRegion(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("region")
	region, ok := s.Store().Get(key)
	if !ok {
		writeJSON(w, r, http.StatusNotFound, responses.ErrorResponse{Error: "region not found: " + key, Kind: "not_found"})
		return
	}
	writeJSON(w, r, http.StatusOK, artifact.ManifestRegion{
		Key:         region.Key,
		Name:        region.Name,
		Files:       region.FileNames(),
		PublishedAt: region.PublishedAt,
	})
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	key, name := r.PathValue("region"), r.PathValue("file")
	region, ok := s.Store().Get(key)
	if !ok {
		http.NotFound(w, r)
		return
	}
	data, ok := region.Files[name]
	if !ok {
		http.NotFound(w, r)
		return
	}
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	http.ServeContent(w, r, name, region.PublishedAt, bytes.NewReader(data))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	store := s.Store()
	writeJSON(w, r, http.StatusOK, responses.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   version.Version,
		Uptime:    time.Since(s.started).Seconds(),
		Regions:   store.Len(),
		Complete:  store.Sealed(),
	})
}

type viewerData struct {
	Manifest   artifact.Manifest
	LiveReload bool
}

func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := viewerTemplate.Execute(&buf, viewerData{Manifest: s.Store().Manifest(), LiveReload: s.lr != nil}); err != nil {
		slog.Error("render viewer", logfields.Error(err))
		writeJSON(w, r, http.StatusInternalServerError, responses.ErrorResponse{Error: "render viewer failed"})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// writeJSON encodes into a buffer first so a failed encode does not leave a
// partial response. Pretty printing is available with ?pretty=1.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	var (
		b   []byte
		err error
	)
	if p := r.URL.Query().Get("pretty"); p == "1" || p == "true" {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		slog.Error("encode JSON response", logfields.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(append(b, '\n')); err != nil {
		slog.Debug("write JSON response", logfields.Error(err))
	}
}

var viewerTemplate = template.Must(template.New("viewer").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Map preview</title>
<style>
body { font-family: sans-serif; margin: 2rem; }
li { margin: .25rem 0; }
.pending { color: #a60; }
</style>
</head>
<body>
<h1>Map preview</h1>
{{if not .Manifest.Complete}}<p class="pending">Generation in progress: {{len .Manifest.Regions}} region(s) ready.</p>{{end}}
<ul>
{{range .Manifest.Regions}}<li><strong>{{.Name}}</strong>{{$key := .Key}}{{range .Files}} <a href="/regions/{{$key}}/{{.}}">{{.}}</a>{{end}}</li>
{{else}}<li>No regions yet.</li>
{{end}}</ul>
{{if .LiveReload}}<script src="/livereload.js"></script>{{end}}
</body>
</html>
`))

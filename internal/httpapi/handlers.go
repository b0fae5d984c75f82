package httpapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Rnteacher/stremio-hebrew-subtitles/internal/cache"
	"github.com/Rnteacher/stremio-hebrew-subtitles/internal/pipeline"
	"github.com/Rnteacher/stremio-hebrew-subtitles/pkg/log"
)

// Manifest is the add-on descriptor served to clients.
type Manifest struct {
	ID          string   `json:"id"`
	Version     string   `json:"version"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Resources   []string `json:"resources"`
	Types       []string `json:"types"`
	IDPrefixes  []string `json:"idPrefixes"`
	Catalogs    []any    `json:"catalogs"`
}

func DefaultManifest() Manifest {
	return Manifest{
		ID:          "org.rnteacher.hebrew-subtitles",
		Version:     "1.0.0",
		Name:        "Hebrew Subtitles",
		Description: "Machine-translated Hebrew subtitles for movies and series",
		Resources:   []string{"subtitles"},
		Types:       []string{"movie", "series"},
		IDPrefixes:  []string{"tt"},
		Catalogs:    []any{},
	}
}

type subtitlesResponse struct {
	Subtitles []pipeline.Reference `json:"subtitles"`
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.manifest)
}

// handleSubtitles answers the subtitle query. The contract with players is
// that this endpoint always returns 200 with a subtitles list; any failure
// along the pipeline shows up as an empty list, never as an error status.
func (s *Server) handleSubtitles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// /subtitles/{type}/{id}.json or /subtitles/{type}/{id}/{extra}.json
	rest := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/subtitles/"), ".json")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 && len(parts) != 3 {
		writeJSON(w, http.StatusOK, subtitlesResponse{Subtitles: []pipeline.Reference{}})
		return
	}

	contentType := parts[0]
	rawID := parts[1]
	if decoded, err := url.PathUnescape(rawID); err == nil {
		rawID = decoded
	}
	if contentType != "movie" && contentType != "series" {
		log.Debug("Ignoring subtitle query for unsupported type %q", contentType)
		writeJSON(w, http.StatusOK, subtitlesResponse{Subtitles: []pipeline.Reference{}})
		return
	}

	subtitles := []pipeline.Reference{}
	if ref, ok := s.subtitles.Handle(r.Context(), rawID); ok {
		subtitles = append(subtitles, *ref)
	}
	writeJSON(w, http.StatusOK, subtitlesResponse{Subtitles: subtitles})
}

// handleAsset serves a cached subtitle file by name.
func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/subs/")
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	if name == "" || !strings.HasSuffix(name, cache.FileSuffix) ||
		strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		http.NotFound(w, r)
		return
	}

	path := filepath.Join(s.assets.Dir(), name)
	if _, err := os.Stat(path); err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	http.ServeFile(w, r, path)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	count, err := s.assets.Count()
	if err != nil {
		log.Warn("Failed to count cache entries: %v", err)
	}
	writable := s.assets.Writable()

	status := http.StatusOK
	state := "ok"
	if !writable {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	writeJSON(w, status, map[string]any{
		"status":         state,
		"cache_writable": writable,
		"cache_entries":  count,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotImplemented, "history store is not configured")
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	records, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

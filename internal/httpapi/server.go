package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/Rnteacher/stremio-hebrew-subtitles/internal/history"
	"github.com/Rnteacher/stremio-hebrew-subtitles/internal/pipeline"
)

type subtitleHandler interface {
	Handle(ctx context.Context, rawID string) (*pipeline.Reference, bool)
}

type assetStore interface {
	Dir() string
	Writable() bool
	Count() (int, error)
}

type historyReader interface {
	Recent(ctx context.Context, limit int) ([]history.Record, error)
}

type Server struct {
	subtitles subtitleHandler
	assets    assetStore
	history   historyReader
	manifest  Manifest

	mux    *http.ServeMux
	server *http.Server
}

type Option func(*Server)

func WithManifest(m Manifest) Option {
	return func(s *Server) {
		s.manifest = m
	}
}

func WithHistory(reader historyReader) Option {
	return func(s *Server) {
		s.history = reader
	}
}

func NewServer(subtitles subtitleHandler, assets assetStore, opts ...Option) *Server {
	s := &Server{
		subtitles: subtitles,
		assets:    assets,
		manifest:  DefaultManifest(),
		mux:       http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return withCORS(s.mux)
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/manifest.json", s.handleManifest)
	s.mux.HandleFunc("/subtitles/", s.handleSubtitles)
	s.mux.HandleFunc("/subs/", s.handleAsset)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/history", s.handleHistory)
}

// withCORS allows browser-based players to fetch the manifest and
// subtitle responses from any origin.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

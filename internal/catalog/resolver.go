package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/Rnteacher/stremio-hebrew-subtitles/internal/contentid"
	"github.com/Rnteacher/stremio-hebrew-subtitles/pkg/log"
)

var (
	// ErrNotFound means no usable source subtitle exists in the catalog.
	ErrNotFound = errors.New("no source subtitle found")
	// ErrResolutionFailed means the catalog could not be consulted.
	ErrResolutionFailed = errors.New("subtitle resolution failed")
)

// SourceReference points at one downloadable source subtitle.
type SourceReference struct {
	SubtitleID  string
	FileID      int64
	FileName    string
	Release     string
	DownloadURL string
}

// searcher is the catalog surface the resolver depends on.
type searcher interface {
	SearchSubtitles(ctx context.Context, params SearchParams) (*SearchResponse, error)
	RequestDownload(ctx context.Context, fileID int64) (*DownloadResponse, error)
}

// Resolver maps a normalized content id to a downloadable source subtitle.
//
// Selection policy is first-with-file: the top-ranked result by the
// catalog's own download-count ordering wins, and a top result without a
// downloadable file is treated as not found rather than falling through to
// the next candidate.
type Resolver struct {
	client         searcher
	sourceLanguage string
}

// NewResolver creates a resolver querying for the given source language
// (ISO 639-1 code, e.g. "en").
func NewResolver(client searcher, sourceLanguage string) *Resolver {
	return &Resolver{
		client:         client,
		sourceLanguage: sourceLanguage,
	}
}

// Resolve finds the best source subtitle for the id and exchanges it for a
// time-limited download URL.
func (r *Resolver) Resolve(ctx context.Context, id contentid.ID) (*SourceReference, error) {
	params := SearchParams{
		IMDBID:    id.Numeric(),
		Languages: r.sourceLanguage,
		Season:    id.Season,
		Episode:   id.Episode,
	}

	result, err := r.client.SearchSubtitles(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: search for %s: %v", ErrResolutionFailed, id.Key(), err)
	}
	if len(result.Data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id.Key())
	}

	best := result.Data[0]
	if len(best.Attributes.Files) == 0 || best.Attributes.Files[0].FileID == 0 {
		log.Warn("Top-ranked subtitle %s for %s has no downloadable file", best.ID, id.Key())
		return nil, fmt.Errorf("%w: top result for %s has no file", ErrNotFound, id.Key())
	}
	file := best.Attributes.Files[0]

	download, err := r.client.RequestDownload(ctx, file.FileID)
	if err != nil {
		return nil, fmt.Errorf("%w: download link for file %d: %v", ErrResolutionFailed, file.FileID, err)
	}
	if download.Link == "" {
		return nil, fmt.Errorf("%w: empty download link for file %d", ErrNotFound, file.FileID)
	}

	return &SourceReference{
		SubtitleID:  best.ID,
		FileID:      file.FileID,
		FileName:    file.FileName,
		Release:     best.Attributes.Release,
		DownloadURL: download.Link,
	}, nil
}

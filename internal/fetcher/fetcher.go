package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Rnteacher/stremio-hebrew-subtitles/internal/catalog"
	"github.com/Rnteacher/stremio-hebrew-subtitles/internal/subtitle"
)

// ErrFetchFailed means the source subtitle could not be downloaded or is
// not a plausible subtitle file.
var ErrFetchFailed = errors.New("subtitle fetch failed")

// maxSubtitleBytes caps the download size; real subtitle files are well
// under a megabyte.
const maxSubtitleBytes = 10 << 20

// Fetcher downloads source subtitle text from resolved references.
// Catalog download links are large and can be slow, so the timeout is
// longer than an ordinary API call.
type Fetcher struct {
	httpClient *http.Client
}

// New creates a Fetcher with the given download timeout.
func New(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch retrieves and parses the subtitle behind the reference. The raw
// text gets a lightweight well-formedness check before parsing.
func (f *Fetcher) Fetch(ctx context.Context, ref *catalog.SourceReference) (*subtitle.Document, error) {
	if ref == nil || ref.DownloadURL == "" {
		return nil, fmt.Errorf("%w: missing download URL", ErrFetchFailed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.DownloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrFetchFailed, err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: download %s: %v", ErrFetchFailed, ref.DownloadURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: download status %d", ErrFetchFailed, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxSubtitleBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrFetchFailed, err)
	}

	text := string(raw)
	if err := subtitle.ValidateRaw(text); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	doc, err := subtitle.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	return doc, nil
}

package catalog

// Wire types for the OpenSubtitles REST API (api.opensubtitles.com/api/v1).

// SearchParams holds the query parameters for a subtitle search.
type SearchParams struct {
	IMDBID    string // numeric form, without the tt prefix
	Languages string // comma-separated ISO 639-1 codes
	Season    int    // zero for movies
	Episode   int    // zero for movies
}

// SearchResponse is the paged search result envelope.
type SearchResponse struct {
	TotalCount int              `json:"total_count"`
	Data       []SubtitleResult `json:"data"`
}

// SubtitleResult is one ranked catalog entry.
type SubtitleResult struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Attributes SubtitleAttributes `json:"attributes"`
}

// SubtitleAttributes carries the fields this add-on consumes.
type SubtitleAttributes struct {
	Language      string     `json:"language"`
	DownloadCount int        `json:"download_count"`
	Release       string     `json:"release"`
	Files         []FileInfo `json:"files"`
}

// FileInfo identifies one downloadable file inside a catalog entry.
type FileInfo struct {
	FileID   int64  `json:"file_id"`
	FileName string `json:"file_name"`
}

// DownloadRequest asks the catalog for a temporary download link.
type DownloadRequest struct {
	FileID int64 `json:"file_id"`
}

// DownloadResponse carries the time-limited download link.
type DownloadResponse struct {
	Link      string `json:"link"`
	FileName  string `json:"file_name"`
	Remaining int    `json:"remaining"`
}

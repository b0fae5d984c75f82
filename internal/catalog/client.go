package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// DefaultBaseURL is the OpenSubtitles REST API root.
	DefaultBaseURL = "https://api.opensubtitles.com/api/v1"

	defaultUserAgent = "stremio-hebrew-subtitles v1"
)

// Client manages communication with the OpenSubtitles API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root, used by tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTimeout bounds every catalog call.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new OpenSubtitles API client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchSubtitles searches the catalog, ranked by download count descending.
func (c *Client) SearchSubtitles(ctx context.Context, params SearchParams) (*SearchResponse, error) {
	query := url.Values{}
	query.Set("imdb_id", params.IMDBID)
	query.Set("languages", params.Languages)
	query.Set("order_by", "download_count")
	query.Set("order_direction", "desc")
	if params.Season > 0 {
		query.Set("season_number", strconv.Itoa(params.Season))
	}
	if params.Episode > 0 {
		query.Set("episode_number", strconv.Itoa(params.Episode))
	}

	var response SearchResponse
	if err := c.doJSON(ctx, http.MethodGet, "/subtitles?"+query.Encode(), nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// RequestDownload exchanges a file id for a time-limited download link.
func (c *Client) RequestDownload(ctx context.Context, fileID int64) (*DownloadResponse, error) {
	var response DownloadResponse
	if err := c.doJSON(ctx, http.MethodPost, "/download", DownloadRequest{FileID: fileID}, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		responseBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("catalog API status %d: %s", resp.StatusCode, string(responseBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Rnteacher/stremio-hebrew-subtitles/internal/contentid"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	searchResp   *SearchResponse
	searchErr    error
	downloadResp *DownloadResponse
	downloadErr  error

	gotSearch   SearchParams
	gotFileID   int64
	searchCalls int
}

func (f *fakeCatalog) SearchSubtitles(ctx context.Context, params SearchParams) (*SearchResponse, error) {
	f.gotSearch = params
	f.searchCalls++
	return f.searchResp, f.searchErr
}

func (f *fakeCatalog) RequestDownload(ctx context.Context, fileID int64) (*DownloadResponse, error) {
	f.gotFileID = fileID
	return f.downloadResp, f.downloadErr
}

func mustParse(t *testing.T, raw string) contentid.ID {
	t.Helper()
	id, err := contentid.Parse(raw)
	require.NoError(t, err)
	return id
}

func TestResolve_PicksTopRankedFile(t *testing.T) {
	fake := &fakeCatalog{
		searchResp: &SearchResponse{Data: []SubtitleResult{
			{
				ID: "sub-1",
				Attributes: SubtitleAttributes{
					Language:      "en",
					DownloadCount: 9000,
					Release:       "Some.Release",
					Files:         []FileInfo{{FileID: 42, FileName: "some.release.srt"}},
				},
			},
			{
				ID:         "sub-2",
				Attributes: SubtitleAttributes{Files: []FileInfo{{FileID: 43}}},
			},
		}},
		downloadResp: &DownloadResponse{Link: "https://dl.example/42.srt"},
	}

	resolver := NewResolver(fake, "en")
	ref, err := resolver.Resolve(context.Background(), mustParse(t, "tt1234567"))
	require.NoError(t, err)

	require.Equal(t, "sub-1", ref.SubtitleID)
	require.Equal(t, int64(42), ref.FileID)
	require.Equal(t, "https://dl.example/42.srt", ref.DownloadURL)
	require.Equal(t, int64(42), fake.gotFileID)
	require.Equal(t, "1234567", fake.gotSearch.IMDBID)
	require.Equal(t, "en", fake.gotSearch.Languages)
}

func TestResolve_SeriesPassesSeasonEpisode(t *testing.T) {
	fake := &fakeCatalog{
		searchResp:   &SearchResponse{Data: []SubtitleResult{{ID: "s", Attributes: SubtitleAttributes{Files: []FileInfo{{FileID: 7}}}}}},
		downloadResp: &DownloadResponse{Link: "https://dl.example/7.srt"},
	}

	resolver := NewResolver(fake, "en")
	_, err := resolver.Resolve(context.Background(), mustParse(t, "tt1234567:3:11"))
	require.NoError(t, err)
	require.Equal(t, 3, fake.gotSearch.Season)
	require.Equal(t, 11, fake.gotSearch.Episode)
}

func TestResolve_EmptyResultIsNotFound(t *testing.T) {
	fake := &fakeCatalog{searchResp: &SearchResponse{}}
	resolver := NewResolver(fake, "en")

	_, err := resolver.Resolve(context.Background(), mustParse(t, "tt1234567"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestResolve_TopResultWithoutFileIsNotFound(t *testing.T) {
	// First-with-file policy: no fallback to the next ranked candidate.
	fake := &fakeCatalog{
		searchResp: &SearchResponse{Data: []SubtitleResult{
			{ID: "no-file", Attributes: SubtitleAttributes{}},
			{ID: "has-file", Attributes: SubtitleAttributes{Files: []FileInfo{{FileID: 99}}}},
		}},
	}
	resolver := NewResolver(fake, "en")

	_, err := resolver.Resolve(context.Background(), mustParse(t, "tt1234567"))
	require.ErrorIs(t, err, ErrNotFound)
	require.Zero(t, fake.gotFileID)
}

func TestResolve_SearchErrorIsResolutionFailed(t *testing.T) {
	fake := &fakeCatalog{searchErr: errors.New("connection refused")}
	resolver := NewResolver(fake, "en")

	_, err := resolver.Resolve(context.Background(), mustParse(t, "tt1234567"))
	require.ErrorIs(t, err, ErrResolutionFailed)
}

func TestResolve_DownloadErrorIsResolutionFailed(t *testing.T) {
	fake := &fakeCatalog{
		searchResp:  &SearchResponse{Data: []SubtitleResult{{ID: "s", Attributes: SubtitleAttributes{Files: []FileInfo{{FileID: 7}}}}}},
		downloadErr: errors.New("boom"),
	}
	resolver := NewResolver(fake, "en")

	_, err := resolver.Resolve(context.Background(), mustParse(t, "tt1234567"))
	require.ErrorIs(t, err, ErrResolutionFailed)
}

func TestResolve_EmptyLinkIsNotFound(t *testing.T) {
	fake := &fakeCatalog{
		searchResp:   &SearchResponse{Data: []SubtitleResult{{ID: "s", Attributes: SubtitleAttributes{Files: []FileInfo{{FileID: 7}}}}}},
		downloadResp: &DownloadResponse{},
	}
	resolver := NewResolver(fake, "en")

	_, err := resolver.Resolve(context.Background(), mustParse(t, "tt1234567"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestClient_SearchSubtitles_BuildsQuery(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string
	var gotAPIKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		gotAPIKey = r.Header.Get("Api-Key")
		json.NewEncoder(w).Encode(SearchResponse{Data: []SubtitleResult{{ID: "x"}}})
	}))
	defer server.Close()

	client := NewClient("secret", WithBaseURL(server.URL))
	resp, err := client.SearchSubtitles(context.Background(), SearchParams{
		IMDBID:    "1234567",
		Languages: "en",
		Season:    2,
		Episode:   5,
	})
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)

	require.Equal(t, "/subtitles", gotPath)
	require.Equal(t, "secret", gotAPIKey)
	require.Equal(t, []string{"1234567"}, gotQuery["imdb_id"])
	require.Equal(t, []string{"en"}, gotQuery["languages"])
	require.Equal(t, []string{"download_count"}, gotQuery["order_by"])
	require.Equal(t, []string{"2"}, gotQuery["season_number"])
	require.Equal(t, []string{"5"}, gotQuery["episode_number"])
}

func TestClient_RequestDownload_PostsFileID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/download", r.URL.Path)
		var req DownloadRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, int64(42), req.FileID)
		json.NewEncoder(w).Encode(DownloadResponse{Link: "https://dl.example/42.srt"})
	}))
	defer server.Close()

	client := NewClient("secret", WithBaseURL(server.URL))
	resp, err := client.RequestDownload(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, "https://dl.example/42.srt", resp.Link)
}

func TestClient_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient("secret", WithBaseURL(server.URL))
	_, err := client.SearchSubtitles(context.Background(), SearchParams{IMDBID: "1"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "403")
}

package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Rnteacher/stremio-hebrew-subtitles/internal/cache"
	"github.com/Rnteacher/stremio-hebrew-subtitles/internal/history"
	"github.com/Rnteacher/stremio-hebrew-subtitles/internal/pipeline"
	"github.com/stretchr/testify/require"
)

type fakeSubtitles struct {
	ref    *pipeline.Reference
	ok     bool
	lastID string
	calls  int
}

func (f *fakeSubtitles) Handle(ctx context.Context, rawID string) (*pipeline.Reference, bool) {
	f.calls++
	f.lastID = rawID
	return f.ref, f.ok
}

type fakeHistory struct {
	records []history.Record
	err     error
}

func (f *fakeHistory) Recent(ctx context.Context, limit int) ([]history.Record, error) {
	return f.records, f.err
}

func newTestServer(t *testing.T, subs *fakeSubtitles, opts ...Option) (*Server, *cache.DiskStore) {
	t.Helper()
	store, err := cache.NewDiskStore(t.TempDir())
	require.NoError(t, err)
	return NewServer(subs, store, opts...), store
}

func doRequest(s *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestManifest(t *testing.T) {
	s, _ := newTestServer(t, &fakeSubtitles{})

	rec := doRequest(s, http.MethodGet, "/manifest.json")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var m Manifest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	require.Equal(t, []string{"subtitles"}, m.Resources)
	require.Equal(t, []string{"movie", "series"}, m.Types)
	require.Equal(t, []string{"tt"}, m.IDPrefixes)
	require.NotEmpty(t, m.ID)
	require.NotNil(t, m.Catalogs)
}

func TestSubtitles_Hit(t *testing.T) {
	subs := &fakeSubtitles{
		ref: &pipeline.Reference{ID: "heb-tt1234567", Lang: "heb", URL: "http://addon/subs/tt1234567.srt"},
		ok:  true,
	}
	s, _ := newTestServer(t, subs)

	rec := doRequest(s, http.MethodGet, "/subtitles/movie/tt1234567.json")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "tt1234567", subs.lastID)

	var resp subtitlesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Subtitles, 1)
	require.Equal(t, "heb", resp.Subtitles[0].Lang)
	require.Equal(t, "http://addon/subs/tt1234567.srt", resp.Subtitles[0].URL)
}

func TestSubtitles_SeriesIDWithEpisodeSuffix(t *testing.T) {
	subs := &fakeSubtitles{ok: false}
	s, _ := newTestServer(t, subs)

	rec := doRequest(s, http.MethodGet, "/subtitles/series/tt1234567%3A1%3A2.json")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "tt1234567:1:2", subs.lastID)
}

func TestSubtitles_ExtraSegmentIgnored(t *testing.T) {
	subs := &fakeSubtitles{ok: false}
	s, _ := newTestServer(t, subs)

	rec := doRequest(s, http.MethodGet, "/subtitles/movie/tt1234567/videoSize=12345.json")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "tt1234567", subs.lastID)
}

func TestSubtitles_FailureIsEmptyList(t *testing.T) {
	subs := &fakeSubtitles{ok: false}
	s, _ := newTestServer(t, subs)

	rec := doRequest(s, http.MethodGet, "/subtitles/movie/garbage.json")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"subtitles":[]}`, rec.Body.String())
}

func TestSubtitles_UnsupportedTypeIsEmptyList(t *testing.T) {
	subs := &fakeSubtitles{ok: true, ref: &pipeline.Reference{}}
	s, _ := newTestServer(t, subs)

	rec := doRequest(s, http.MethodGet, "/subtitles/channel/tt1234567.json")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"subtitles":[]}`, rec.Body.String())
	require.Zero(t, subs.calls)
}

func TestAsset_ServesCachedFile(t *testing.T) {
	s, store := newTestServer(t, &fakeSubtitles{})

	content := "1\n00:00:01,000 --> 00:00:02,000\nשלום עולם\n\n"
	entry, err := store.Put("tt1234567", []byte(content))
	require.NoError(t, err)

	rec := doRequest(s, http.MethodGet, "/subs/"+entry.FileName)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	require.Equal(t, content, rec.Body.String())
}

func TestAsset_RejectsBadNames(t *testing.T) {
	s, _ := newTestServer(t, &fakeSubtitles{})

	for _, target := range []string{
		"/subs/",
		"/subs/missing.srt",
		"/subs/notes.txt",
		"/subs/evil..srt",
	} {
		rec := doRequest(s, http.MethodGet, target)
		require.Equal(t, http.StatusNotFound, rec.Code, target)
	}
}

func TestHealth(t *testing.T) {
	s, store := newTestServer(t, &fakeSubtitles{})
	_, err := store.Put("tt1", []byte("x"))
	require.NoError(t, err)

	rec := doRequest(s, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
	require.Equal(t, true, body["cache_writable"])
	require.Equal(t, float64(1), body["cache_entries"])
}

func TestHistory(t *testing.T) {
	reader := &fakeHistory{records: []history.Record{
		{Key: "tt1", Stage: "persist", Outcome: "translated"},
	}}
	s, _ := newTestServer(t, &fakeSubtitles{}, WithHistory(reader))

	rec := doRequest(s, http.MethodGet, "/api/history?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)

	var records []history.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	require.Equal(t, "translated", records[0].Outcome)
}

func TestHistory_NotConfigured(t *testing.T) {
	s, _ := newTestServer(t, &fakeSubtitles{})

	rec := doRequest(s, http.MethodGet, "/api/history")
	require.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t, &fakeSubtitles{})

	rec := doRequest(s, http.MethodOptions, "/subtitles/movie/tt1.json")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDiskStore_PutThenGet(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	_, found, err := store.Get("tt1234567")
	require.NoError(t, err)
	require.False(t, found)

	content := []byte("1\n00:00:01,000 --> 00:00:02,000\nhello\n\n")
	entry, err := store.Put("tt1234567", content)
	require.NoError(t, err)
	require.Equal(t, "tt1234567.srt", entry.FileName)
	require.Equal(t, int64(len(content)), entry.SizeBytes)

	got, found, err := store.Get("tt1234567")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, entry.Path, got.Path)

	onDisk, err := os.ReadFile(got.Path)
	require.NoError(t, err)
	require.Equal(t, content, onDisk)
}

func TestDiskStore_OverwriteLeavesSingleEntry(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir)
	require.NoError(t, err)

	_, err = store.Put("tt1234567", []byte("first content"))
	require.NoError(t, err)
	_, err = store.Put("tt1234567", []byte("second content"))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	onDisk, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	require.Equal(t, []byte("second content"), onDisk)
}

func TestDiskStore_SeriesKeyIsSanitized(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir)
	require.NoError(t, err)

	entry, err := store.Put("tt1234567:1:2", []byte("content"))
	require.NoError(t, err)
	require.Equal(t, "tt1234567-1-2.srt", entry.FileName)

	_, found, err := store.Get("tt1234567:1:2")
	require.NoError(t, err)
	require.True(t, found)
}

func TestSanitizeKey(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"tt1234567", "tt1234567"},
		{"tt1234567:1:2", "tt1234567-1-2"},
		{"../etc/passwd", "---etc-passwd"},
		{"key with spaces", "key-with-spaces"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, SanitizeKey(tc.in))
	}
}

func TestDiskStore_NoPartialEntryVisible(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir)
	require.NoError(t, err)

	// A leftover temp file from an interrupted write must not satisfy Get.
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".tmp-abandoned"), []byte("partial"), 0o644))

	_, found, err := store.Get("tt1234567")
	require.NoError(t, err)
	require.False(t, found)
}

func TestDiskStore_SweepTemp(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir)
	require.NoError(t, err)

	stale := filepath.Join(dir, ".tmp-stale")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	fresh := filepath.Join(dir, ".tmp-fresh")
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0o644))

	_, err = store.Put("tt1", []byte("cached entry that must survive"))
	require.NoError(t, err)

	removed, err := store.SweepTemp(time.Hour)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, statErr := os.Stat(stale)
	require.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(fresh)
	require.NoError(t, statErr)

	count, err := store.Count()
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestDiskStore_Writable(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	require.True(t, store.Writable())
}

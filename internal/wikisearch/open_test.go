package wikisearch

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikisearch/internal/config"
	"wikisearch/internal/dump"
	"wikisearch/internal/lemma"
	"wikisearch/internal/titleindex"
)

func dumpServer(t *testing.T, hits *int32, lines ...string) *httptest.Server {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	body := buf.Bytes()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(dir, url string) config.Config {
	return config.Config{
		IndexPath:       filepath.Join(dir, "titles.db"),
		ArchivePath:     filepath.Join(dir, "dump.gz"),
		DumpURL:         url,
		BatchSize:       2,
		CandidateLimit:  50,
		DownloadRetries: 1,
	}
}

func TestOpenFinderDownloadsBuildsAndLoads(t *testing.T) {
	var hits int32
	srv := dumpServer(t, &hits, "Ленинград", "Ленинградская_область", "Москва")
	cfg := testConfig(t.TempDir(), srv.URL)
	cache := lemma.NewCache(lemma.Func(func(w string) string { return w }))

	r, err := OpenFinder(context.Background(), cfg, cache)
	require.NoError(t, err)
	defer r.Close()

	got, err := r.Find(context.Background(), "ленинград", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ленинград"}, got)

	_, statErr := os.Stat(cfg.ArchivePath)
	assert.True(t, os.IsNotExist(statErr), "archive removed after build")
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))

	// second open reuses the index
	r2, err := OpenFinder(context.Background(), cfg, cache)
	require.NoError(t, err)
	defer r2.Close()
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestEnsureReportsDownloadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()
	cfg := testConfig(t.TempDir(), srv.URL)

	err := Ensure(context.Background(), cfg, lemma.NewCache(nil),
		WithFetchOptions(dump.WithBackoff(time.Millisecond, time.Millisecond)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "download dump")
	_, statErr := os.Stat(cfg.IndexPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestEnsureReplacesIncompleteIndexOnRequest(t *testing.T) {
	var hits int32
	srv := dumpServer(t, &hits, "Ленинград", "Москва")
	cfg := testConfig(t.TempDir(), srv.URL)
	cache := lemma.NewCache(lemma.Func(func(w string) string { return w }))

	x, err := titleindex.Create(context.Background(), cfg.IndexPath)
	require.NoError(t, err)
	require.NoError(t, x.InsertBatch(context.Background(), []titleindex.Record{{Title: "Тверь", Lemmas: "тверь"}}))
	require.NoError(t, x.Close())

	_, err = OpenFinder(context.Background(), cfg, cache)
	require.ErrorIs(t, err, titleindex.ErrIncomplete)
	assert.Zero(t, atomic.LoadInt32(&hits))

	r, err := OpenFinder(context.Background(), cfg, cache, WithReplaceIncomplete())
	require.NoError(t, err)
	defer r.Close()
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))

	got, err := r.Find(context.Background(), "москва", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Москва"}, got)
}

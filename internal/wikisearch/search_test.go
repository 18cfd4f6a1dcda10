package wikisearch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikisearch/internal/resolver"
)

type fakeFinder struct {
	titles map[string][]string
	calls  int
	err    error
}

func (f *fakeFinder) Find(_ context.Context, q string, topN int) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	ts := f.titles[q]
	if len(ts) > topN {
		ts = ts[:topN]
	}
	return ts, nil
}

type fakePages map[string]Page

func (p fakePages) Page(_ context.Context, title string) (Page, error) {
	return p[title], nil
}

func TestSearchReturnsFormattedResult(t *testing.T) {
	f := &fakeFinder{titles: map[string][]string{"ленинград": {"Ленинград", "Ленинградская область"}}}
	pages := fakePages{"Ленинград": {
		Exists:       true,
		CanonicalURL: "https://ru.wikipedia.org/wiki/Ленинград",
		Summary:      "Ленингра\u0301д (до 1924 года Петроград) — название Санкт-Петербурга. Второе. Третье.",
	}}
	s, err := NewSearcher(f, pages, nil)
	require.NoError(t, err)

	r, err := s.Search(context.Background(), "  ленинград ")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "Ленинград", r.Title)
	assert.Equal(t, "https://ru.wikipedia.org/wiki/Ленинград", r.URL)
	require.NotNil(t, r.Summary)
	assert.Equal(t, "Ленинград — название Санкт-Петербурга. Второе...", *r.Summary)
}

func TestSearchNilCases(t *testing.T) {
	f := &fakeFinder{titles: map[string][]string{"x": {"Икс"}, "y": {"Игрек"}}}
	pages := fakePages{"Игрек": {Exists: true, CanonicalURL: "u"}}
	s, err := NewSearcher(f, pages, nil)
	require.NoError(t, err)

	r, err := s.Search(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Nil(t, r)

	r, err = s.Search(context.Background(), "x")
	require.NoError(t, err)
	assert.Nil(t, r, "page does not exist")

	r, err = s.Search(context.Background(), "y")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Nil(t, r.Summary)
}

func TestSearchBlankExtractStillGetsSummary(t *testing.T) {
	f := &fakeFinder{titles: map[string][]string{"z": {"Зет"}}}
	s, err := NewSearcher(f, fakePages{"Зет": {Exists: true, CanonicalURL: "u", Summary: " \n "}}, nil)
	require.NoError(t, err)

	r, err := s.Search(context.Background(), "z")
	require.NoError(t, err)
	require.NotNil(t, r)
	require.NotNil(t, r.Summary)
	assert.Equal(t, "...", *r.Summary)
}

func TestSearchMemoizesByRawQuery(t *testing.T) {
	f := &fakeFinder{titles: map[string][]string{"q": {"Ку"}}}
	s, err := NewSearcher(f, fakePages{"Ку": {Exists: true}}, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := s.Search(context.Background(), "q")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, f.calls)

	_, err = s.Search(context.Background(), " q")
	require.NoError(t, err)
	assert.Equal(t, 2, f.calls)
}

func TestSearchDoesNotCacheErrors(t *testing.T) {
	f := &fakeFinder{err: resolver.ErrNotLoaded}
	s, err := NewSearcher(f, fakePages{}, nil)
	require.NoError(t, err)

	_, err = s.Search(context.Background(), "q")
	require.True(t, errors.Is(err, resolver.ErrNotLoaded))
	_, err = s.Search(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, 2, f.calls)
}

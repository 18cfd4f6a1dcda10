package wikisearch

import (
	"context"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	mylog "wikisearch/internal/log"
	"wikisearch/internal/summary"
)

// CacheSize is how many distinct queries Searcher remembers.
const CacheSize = 100

// Page is what a PageSource knows about an article.
type Page struct {
	Exists       bool
	CanonicalURL string
	// Summary is the lead extract; empty when the page has none.
	Summary string
}

// PageSource fetches article metadata by exact title.
type PageSource interface {
	Page(ctx context.Context, title string) (Page, error)
}

// Finder resolves a query to ranked titles. *resolver.Resolver implements it.
type Finder interface {
	Find(ctx context.Context, q string, topN int) ([]string, error)
}

// Result is the answer for one query. Summary is nil when the page has no
// extract.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Summary *string `json:"summary"`
}

type Searcher struct {
	finder Finder
	pages  PageSource
	cache  *lru.Cache[string, *Result]
	log    *mylog.Logger
}

func NewSearcher(f Finder, p PageSource, l *mylog.Logger) (*Searcher, error) {
	c, err := lru.New[string, *Result](CacheSize)
	if err != nil {
		return nil, err
	}
	if l == nil {
		l = mylog.Nop()
	}
	return &Searcher{finder: f, pages: p, cache: c, log: l.With(map[string]string{"component": "searcher"})}, nil
}

// Search returns the best article for query, or nil when nothing matches or
// the page does not exist. Answers, nil ones included, are memoized per raw
// query; errors are not.
func (s *Searcher) Search(ctx context.Context, query string) (*Result, error) {
	if r, ok := s.cache.Get(query); ok {
		return r, nil
	}
	r, err := s.search(ctx, strings.TrimSpace(query))
	if err != nil {
		return nil, err
	}
	s.cache.Add(query, r)
	return r, nil
}

func (s *Searcher) search(ctx context.Context, q string) (*Result, error) {
	titles, err := s.finder.Find(ctx, q, 1)
	if err != nil {
		return nil, err
	}
	if len(titles) == 0 {
		s.log.Debug("no title", "query", q)
		return nil, nil
	}
	title := titles[0]
	page, err := s.pages.Page(ctx, title)
	if err != nil {
		return nil, err
	}
	if !page.Exists {
		s.log.Debug("page missing", "title", title)
		return nil, nil
	}
	res := &Result{Title: title, URL: page.CanonicalURL}
	if page.Summary != "" {
		sum := summary.Format(page.Summary)
		res.Summary = &sum
	}
	return res, nil
}

// Package resolver maps free-form queries to the best-matching indexed
// titles.
//
// A Resolver starts unloaded; Load opens the index read-only and Find may be
// called from any number of goroutines afterwards. Candidates come from an
// OR of the query words and their lemmas against the trigram index and are
// re-ranked with a blend of surface similarity, lemma similarity, a
// word-overlap bonus and a length penalty.
package resolver

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"wikisearch/internal/lemma"
	mylog "wikisearch/internal/log"
	"wikisearch/internal/metrics"
	"wikisearch/internal/textnorm"
	"wikisearch/internal/titleindex"
)

const DefaultCandidateLimit = 500

type Resolver struct {
	cache   *lemma.Cache
	limit   int
	log     *mylog.Logger
	metrics *metrics.Metrics

	mu  sync.RWMutex
	idx *titleindex.Index
}

type Option func(*Resolver)

// WithCandidateLimit caps the full-text candidates scored per lookup.
func WithCandidateLimit(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.limit = n
		}
	}
}

func WithLogger(l *mylog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) {
		if m != nil {
			r.metrics = m
		}
	}
}

// New returns an unloaded Resolver sharing cache with the builder.
func New(cache *lemma.Cache, opts ...Option) *Resolver {
	r := &Resolver{
		cache:   cache,
		limit:   DefaultCandidateLimit,
		log:     mylog.Nop(),
		metrics: metrics.New(nil),
	}
	for _, o := range opts {
		o(r)
	}
	r.log = r.log.With(map[string]string{"component": "resolver"})
	return r
}

// Load opens the finished index at path read-only. Loading an already loaded
// Resolver is a no-op.
func (r *Resolver) Load(ctx context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.idx != nil {
		return nil
	}
	idx, err := titleindex.OpenReadOnly(ctx, path)
	if err != nil {
		return err
	}
	r.idx = idx
	r.log.Info("index loaded", "index", path)
	return nil
}

func (r *Resolver) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.idx != nil
}

// Close releases the index and returns the Resolver to the unloaded state.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.idx == nil {
		return nil
	}
	err := r.idx.Close()
	r.idx = nil
	return err
}

// Find returns up to topN titles best matching q, best first. The only error
// is ErrNotLoaded; a query with no words, an expression the engine rejects,
// a storage failure or an absence of matches all yield an empty result.
func (r *Resolver) Find(ctx context.Context, q string, topN int) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.idx == nil {
		return nil, ErrNotLoaded
	}
	start := time.Now()
	defer func() { r.metrics.FindLatency.Observe(time.Since(start).Seconds()) }()

	pq := r.parse(q)
	if len(pq.words) == 0 || topN <= 0 {
		r.metrics.FindTotal.WithLabelValues(metrics.ResultNoQuery).Inc()
		return nil, nil
	}
	rows, ok := r.lookup(ctx, r.idx, matchExpr(pq))
	r.metrics.Candidates.Observe(float64(len(rows)))
	if !ok {
		r.metrics.FindTotal.WithLabelValues(metrics.ResultMalformed).Inc()
		return nil, nil
	}
	if len(rows) == 0 {
		r.metrics.FindTotal.WithLabelValues(metrics.ResultEmpty).Inc()
		return nil, nil
	}

	type ranked struct {
		title string
		score float64
	}
	out := make([]ranked, len(rows))
	for i, rec := range rows {
		out[i] = ranked{title: rec.Title, score: pq.score(rec)}
	}
	// stable: equal scores keep the engine's rank order
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })

	n := min(topN, len(out))
	titles := make([]string, n)
	for i := range titles {
		titles[i] = out[i].title
	}
	r.metrics.FindTotal.WithLabelValues(metrics.ResultHit).Inc()
	if r.log.Enabled(mylog.Debug) {
		r.log.Debug("find", "query", q, "candidates", len(rows), "top", titles[0], "score", out[0].score,
			"duration_ms", time.Since(start).Milliseconds())
	}
	return titles, nil
}

func (r *Resolver) parse(q string) query {
	lower := strings.ToLower(q)
	words := textnorm.Words(lower)
	lemmas := make([]string, len(words))
	for i, w := range words {
		lemmas[i] = r.cache.Lemma(w)
	}
	return query{
		lower:  lower,
		runes:  utf8.RuneCountInString(lower),
		words:  words,
		lemmas: lemmas,
		joined: strings.Join(lemmas, " "),
	}
}

// matchExpr ORs a quoted phrase per word, plus one per lemma that differs
// from its word.
func matchExpr(q query) string {
	terms := make([]string, 0, 2*len(q.words))
	for i, w := range q.words {
		terms = append(terms, textnorm.Phrase(w))
		if q.lemmas[i] != w {
			terms = append(terms, textnorm.Phrase(q.lemmas[i]))
		}
	}
	return strings.Join(terms, " OR ")
}

// lookup runs expr and reports false when the engine rejected it or failed.
// Neither is retried.
func (r *Resolver) lookup(ctx context.Context, idx *titleindex.Index, expr string) ([]titleindex.Record, bool) {
	rows, err := idx.Search(ctx, expr, r.limit)
	if err != nil {
		r.log.Warn("full-text lookup failed", "expr", expr, "err", err)
		return nil, false
	}
	return rows, true
}

// Package builder turns a gzip title dump into a title index.
package builder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"

	"wikisearch/internal/lemma"
	mylog "wikisearch/internal/log"
	"wikisearch/internal/metrics"
	"wikisearch/internal/textnorm"
	"wikisearch/internal/titleindex"
)

const DefaultBatchSize = 50000

// Stats summarizes one build.
type Stats struct {
	Lines      int
	Indexed    int
	Short      int
	Invalid    int
	Duplicates int
	Batches    int
	// Skipped is set when a finished index was already present.
	Skipped  bool
	Duration time.Duration
}

type Builder struct {
	cache     *lemma.Cache
	batchSize int
	replace   bool
	log       *mylog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Builder)

func WithBatchSize(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.batchSize = n
		}
	}
}

// WithReplaceIncomplete makes Build delete an unfinished index left by an
// interrupted build and start over instead of returning ErrIncompleteIndex.
func WithReplaceIncomplete() Option {
	return func(b *Builder) { b.replace = true }
}

func WithLogger(l *mylog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.log = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Builder) {
		if m != nil {
			b.metrics = m
		}
	}
}

// New returns a Builder that lemmatizes through cache, the same cache the
// resolver will use.
func New(cache *lemma.Cache, opts ...Option) *Builder {
	b := &Builder{
		cache:     cache,
		batchSize: DefaultBatchSize,
		log:       mylog.Nop(),
		metrics:   metrics.New(nil),
	}
	for _, o := range opts {
		o(b)
	}
	b.log = b.log.With(map[string]string{"component": "builder"})
	return b
}

// BuildFile builds from a downloaded dump at artifactPath and removes the
// artifact on every return path.
func (b *Builder) BuildFile(ctx context.Context, indexPath, artifactPath string) (st Stats, err error) {
	defer func() {
		if rmErr := os.Remove(artifactPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			b.log.Warn("remove artifact", "path", artifactPath, "err", rmErr)
		}
	}()
	f, err := os.Open(artifactPath)
	if err != nil {
		return Stats{}, err
	}
	defer f.Close()
	return b.Build(ctx, indexPath, f)
}

// Build reads gzip-compressed titles from r, one per line, and writes the
// index at indexPath. An existing finished index is left untouched.
//
// Rows are committed in batches; a failure leaves the committed batches in
// place but the index is never marked complete, so readers refuse it.
func (b *Builder) Build(ctx context.Context, indexPath string, r io.Reader) (Stats, error) {
	if titleindex.Exists(indexPath) {
		st, err := b.existing(ctx, indexPath)
		if !b.replace || !errors.Is(err, ErrIncompleteIndex) {
			return st, err
		}
		b.log.Warn("removing incomplete index", "index", indexPath)
		if err := titleindex.Remove(indexPath); err != nil {
			return Stats{}, fmt.Errorf("remove incomplete index: %w", err)
		}
	}
	start := time.Now()
	zr, err := gzip.NewReader(r)
	if err != nil {
		return Stats{}, fmt.Errorf("open dump: %w", err)
	}
	defer zr.Close()

	x, err := titleindex.Create(ctx, indexPath)
	if err != nil {
		return Stats{}, fmt.Errorf("create index: %w", err)
	}
	defer x.Close()

	b.log.Info("build started", "index", indexPath, "batch_size", b.batchSize)
	var st Stats
	seen := make(map[string]struct{})
	batch := make([]titleindex.Record, 0, b.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := x.InsertBatch(ctx, batch); err != nil {
			return fmt.Errorf("commit batch %d: %w", st.Batches+1, err)
		}
		st.Batches++
		st.Indexed += len(batch)
		b.metrics.BatchesCommitted.Inc()
		b.metrics.TitlesIndexed.Add(float64(len(batch)))
		b.log.Info("batch committed", "batch", st.Batches, "indexed", st.Indexed, "lines", st.Lines)
		batch = batch[:0]
		return nil
	}

	sc := bufio.NewScanner(zr)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		st.Lines++
		title := textnorm.CleanTitle(sc.Text())
		if utf8.RuneCountInString(title) < textnorm.MinTitleLen {
			st.Short++
			b.metrics.TitlesRejected.WithLabelValues(metrics.RejectShort).Inc()
			continue
		}
		if !textnorm.ValidTitle(title) {
			st.Invalid++
			b.metrics.TitlesRejected.WithLabelValues(metrics.RejectInvalid).Inc()
			continue
		}
		key := textnorm.Normalize(title)
		if _, dup := seen[key]; dup {
			st.Duplicates++
			b.metrics.TitlesRejected.WithLabelValues(metrics.RejectDuplicate).Inc()
			continue
		}
		seen[key] = struct{}{}
		batch = append(batch, titleindex.Record{Title: title, Lemmas: b.cache.Text(title)})
		if len(batch) >= b.batchSize {
			if err := flush(); err != nil {
				return st, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return st, fmt.Errorf("read dump: %w", err)
	}
	if err := flush(); err != nil {
		return st, err
	}
	if err := x.Optimize(ctx); err != nil {
		return st, fmt.Errorf("optimize: %w", err)
	}
	if err := x.MarkComplete(ctx, st.Indexed); err != nil {
		return st, fmt.Errorf("mark complete: %w", err)
	}
	st.Duration = time.Since(start)
	b.log.Info("build finished",
		"indexed", st.Indexed, "lines", st.Lines, "short", st.Short,
		"invalid", st.Invalid, "duplicates", st.Duplicates, "duration_ms", st.Duration.Milliseconds())
	return st, nil
}

func (b *Builder) existing(ctx context.Context, indexPath string) (Stats, error) {
	x, err := titleindex.OpenReadOnly(ctx, indexPath)
	if err != nil {
		return Stats{}, err
	}
	defer x.Close()
	b.log.Info("index present, build skipped", "index", indexPath)
	return Stats{Skipped: true}, nil
}

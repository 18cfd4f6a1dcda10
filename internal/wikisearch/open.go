// Package wikisearch ties the index, resolver and page source together: it
// makes sure an index exists, loads it, and answers queries with a title, a
// link and a short summary.
package wikisearch

import (
	"context"
	"errors"
	"fmt"

	"wikisearch/internal/builder"
	"wikisearch/internal/config"
	"wikisearch/internal/dump"
	"wikisearch/internal/lemma"
	mylog "wikisearch/internal/log"
	"wikisearch/internal/metrics"
	"wikisearch/internal/resolver"
	"wikisearch/internal/titleindex"
)

type openOptions struct {
	log     *mylog.Logger
	metrics *metrics.Metrics
	fetch   []dump.Option
	replace bool
}

type OpenOption func(*openOptions)

func WithLogger(l *mylog.Logger) OpenOption {
	return func(o *openOptions) {
		if l != nil {
			o.log = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) OpenOption {
	return func(o *openOptions) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithFetchOptions passes extra options to the dump downloader.
func WithFetchOptions(opts ...dump.Option) OpenOption {
	return func(o *openOptions) { o.fetch = append(o.fetch, opts...) }
}

// WithReplaceIncomplete lets Ensure delete and rebuild an index left
// unfinished by an interrupted build.
func WithReplaceIncomplete() OpenOption {
	return func(o *openOptions) { o.replace = true }
}

func collect(opts []OpenOption) openOptions {
	o := openOptions{log: mylog.Nop(), metrics: metrics.New(nil)}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Ensure builds the index at cfg.IndexPath when the file is missing,
// downloading the dump to cfg.ArchivePath first. The archive is removed once
// the build finishes, successfully or not.
func Ensure(ctx context.Context, cfg config.Config, cache *lemma.Cache, opts ...OpenOption) error {
	o := collect(opts)
	if titleindex.Exists(cfg.IndexPath) {
		if !o.replace {
			return nil
		}
		x, err := titleindex.OpenReadOnly(ctx, cfg.IndexPath)
		if err == nil {
			return x.Close()
		}
		if !errors.Is(err, titleindex.ErrIncomplete) {
			return err
		}
		o.log.Warn("removing incomplete index", "index", cfg.IndexPath)
		if err := titleindex.Remove(cfg.IndexPath); err != nil {
			return fmt.Errorf("remove incomplete index: %w", err)
		}
	}
	o.log.Info("index missing, building", "index", cfg.IndexPath, "dump_url", cfg.DumpURL)

	fopts := append([]dump.Option{
		dump.WithLogger(o.log),
		dump.WithMetrics(o.metrics),
		dump.WithRetries(cfg.DownloadRetries),
	}, o.fetch...)
	if err := dump.New(cfg.UserAgent(), fopts...).Fetch(ctx, cfg.DumpURL, cfg.ArchivePath); err != nil {
		return fmt.Errorf("download dump: %w", err)
	}

	b := builder.New(cache,
		builder.WithBatchSize(cfg.BatchSize),
		builder.WithLogger(o.log),
		builder.WithMetrics(o.metrics),
	)
	st, err := b.BuildFile(ctx, cfg.IndexPath, cfg.ArchivePath)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	o.log.Info("index ready", "titles", st.Indexed, "duration", st.Duration.String())
	return nil
}

// OpenFinder ensures the index and returns a loaded resolver.
func OpenFinder(ctx context.Context, cfg config.Config, cache *lemma.Cache, opts ...OpenOption) (*resolver.Resolver, error) {
	if err := Ensure(ctx, cfg, cache, opts...); err != nil {
		return nil, err
	}
	o := collect(opts)
	r := resolver.New(cache,
		resolver.WithCandidateLimit(cfg.CandidateLimit),
		resolver.WithLogger(o.log),
		resolver.WithMetrics(o.metrics),
	)
	if err := r.Load(ctx, cfg.IndexPath); err != nil {
		return nil, err
	}
	return r, nil
}

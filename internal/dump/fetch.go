// Package dump downloads the Wikipedia title dump that seeds the index.
package dump

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	mylog "wikisearch/internal/log"
	"wikisearch/internal/metrics"
	"wikisearch/internal/resilience"
)

// Progress receives the bytes written so far and the expected total (0 when
// the server sends no Content-Length).
type Progress func(done, total int64)

type Fetcher struct {
	client    *http.Client
	userAgent string
	retry     resilience.RetryConfig
	log       *mylog.Logger
	metrics   *metrics.Metrics
	progress  Progress
	// bytes between progress log lines
	logEvery int64
}

type Option func(*Fetcher)

func WithClient(c *http.Client) Option { return func(f *Fetcher) { f.client = c } }

func WithRetries(n int) Option { return func(f *Fetcher) { f.retry.MaxAttempts = n } }

func WithBackoff(initial, max time.Duration) Option {
	return func(f *Fetcher) {
		f.retry.InitialDelay = initial
		f.retry.MaxDelay = max
	}
}

func WithLogger(l *mylog.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.log = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Fetcher) {
		if m != nil {
			f.metrics = m
		}
	}
}

func WithProgress(p Progress) Option { return func(f *Fetcher) { f.progress = p } }

func New(userAgent string, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{Timeout: 0},
		userAgent: userAgent,
		log:       mylog.Nop(),
		metrics:   metrics.New(nil),
		logEvery:  16 << 20,
	}
	for _, o := range opts {
		o(f)
	}
	f.log = f.log.With(map[string]string{"component": "dump"})
	f.retry.Logger = f.log
	return f
}

// Fetch downloads url into dest unless dest already exists. A failed attempt
// never leaves a partial file behind.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		f.log.Info("dump present, download skipped", "path", dest)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return resilience.Retry(ctx, "download dump", f.retry, func() error {
		return f.fetchOnce(ctx, url, dest)
	})
}

func (f *Fetcher) fetchOnce(ctx context.Context, url, dest string) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return resilience.Permanent(err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return resilience.Permanent(err)
		}
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("GET %s: %s", url, resp.Status)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return resilience.Permanent(err)
		}
		return err
	}

	out, err := os.Create(dest)
	if err != nil {
		return resilience.Permanent(err)
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(dest)
		}
	}()

	pw := &progressWriter{f: f, total: resp.ContentLength}
	f.log.Info("download started", "url", url, "size", sizeOf(resp.ContentLength), "user_agent", f.userAgent)
	n, err := io.Copy(io.MultiWriter(out, pw), resp.Body)
	if err != nil {
		return err
	}
	if resp.ContentLength > 0 && n != resp.ContentLength {
		return fmt.Errorf("short download: got %d of %d bytes", n, resp.ContentLength)
	}
	f.log.Info("download finished", "path", dest, "size", humanize.Bytes(uint64(n)))
	return nil
}

type progressWriter struct {
	f      *Fetcher
	total  int64
	done   int64
	logged int64
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.done += int64(len(b))
	p.f.metrics.DownloadedBytes.Add(float64(len(b)))
	if p.f.progress != nil {
		p.f.progress(p.done, p.total)
	}
	if p.done-p.logged >= p.f.logEvery {
		p.logged = p.done
		kv := []any{"done", humanize.Bytes(uint64(p.done))}
		if p.total > 0 {
			kv = append(kv, "total", humanize.Bytes(uint64(p.total)), "percent", p.done*100/p.total)
		}
		p.f.log.Info("download progress", kv...)
	}
	return len(b), nil
}

func sizeOf(n int64) string {
	if n <= 0 {
		return "unknown"
	}
	return humanize.Bytes(uint64(n))
}

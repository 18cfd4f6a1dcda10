package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"wikisearch/internal/builder"
	"wikisearch/internal/config"
	"wikisearch/internal/dump"
	"wikisearch/internal/eval"
	"wikisearch/internal/lemma"
	mylog "wikisearch/internal/log"
	"wikisearch/internal/metrics"
	"wikisearch/internal/resolver"
	"wikisearch/internal/wikisearch"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newApp(os.Stdin, os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "wikisearch: %v\n", err)
		os.Exit(1)
	}
}

// env is what every command needs, set up in Before.
type env struct {
	cfg   config.Config
	log   *mylog.Logger
	reg   *prometheus.Registry
	m     *metrics.Metrics
	cache *lemma.Cache
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *cli.App {
	e := &env{}
	return &cli.App{
		Name:      "wikisearch",
		Usage:     "Resolve Russian queries to Wikipedia article titles",
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				EnvVars: []string{"WIKISEARCH_LOG_LEVEL"},
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "index",
				Usage:   "Path to the title index",
				EnvVars: []string{"WIKISEARCH_INDEX_PATH"},
			},
		},
		Before: func(c *cli.Context) error { return e.setup(c, stderr) },
		Commands: []*cli.Command{
			{
				Name:   "build",
				Usage:  "Build the title index from a dump file or by downloading one",
				Action: e.buildCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "dump",
						Usage: "Local gzip title dump; downloaded from the configured URL when empty",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Titles per transaction",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Replace an index left unfinished by an interrupted build",
					},
				},
			},
			{
				Name:      "find",
				Usage:     "Print the best matching titles for a query",
				ArgsUsage: "<query>",
				Action:    e.findCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top",
						Aliases: []string{"n"},
						Usage:   "Number of titles to print",
						Value:   5,
					},
				},
			},
			{
				Name:      "eval",
				Usage:     "Score ranking quality against labelled queries",
				ArgsUsage: "<cases.yaml>",
				Action:    e.evalCommand,
			},
			{
				Name:   "shell",
				Usage:  "Answer one query per input line",
				Action: e.shellCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top",
						Aliases: []string{"n"},
						Usage:   "Number of titles to print per query",
						Value:   1,
					},
					&cli.StringFlag{
						Name:    "metrics-addr",
						Usage:   "Serve Prometheus metrics on this address",
						EnvVars: []string{"WIKISEARCH_METRICS_ADDR"},
					},
				},
			},
		},
	}
}

func (e *env) setup(c *cli.Context, stderr io.Writer) error {
	if err := config.LoadAndApply(); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if p := c.String("index"); p != "" {
		cfg.IndexPath = p
	}
	// flags read their env vars before the config file was applied
	level := c.String("log-level")
	if !c.IsSet("log-level") || level == "" {
		level = cfg.LogLevel
	}
	lvl, ok := mylog.ParseLevel(level)
	if !ok {
		return fmt.Errorf("unknown log level %q", level)
	}
	e.cfg = cfg
	e.log = mylog.NewWriter(stderr, lvl)
	e.reg = prometheus.NewRegistry()
	e.m = metrics.New(e.reg)
	e.cache = lemma.NewCache(nil)
	metrics.RegisterCache(e.reg, e.cache)
	return nil
}

func (e *env) buildCommand(c *cli.Context) error {
	cfg := e.cfg
	if n := c.Int("batch-size"); n > 0 {
		cfg.BatchSize = n
	}
	force := c.Bool("force")
	dumpPath := c.String("dump")
	if dumpPath == "" {
		opts := []wikisearch.OpenOption{
			wikisearch.WithLogger(e.log),
			wikisearch.WithMetrics(e.m),
			wikisearch.WithFetchOptions(dump.WithClient(downloadClient())),
		}
		if force {
			opts = append(opts, wikisearch.WithReplaceIncomplete())
		}
		return incompleteHint(wikisearch.Ensure(c.Context, cfg, e.cache, opts...))
	}
	f, err := os.Open(dumpPath)
	if err != nil {
		return err
	}
	defer f.Close()
	bopts := []builder.Option{
		builder.WithBatchSize(cfg.BatchSize),
		builder.WithLogger(e.log),
		builder.WithMetrics(e.m),
	}
	if force {
		bopts = append(bopts, builder.WithReplaceIncomplete())
	}
	st, err := builder.New(e.cache, bopts...).Build(c.Context, cfg.IndexPath, f)
	if err != nil {
		return incompleteHint(err)
	}
	if st.Skipped {
		fmt.Fprintf(c.App.Writer, "index %s already built\n", cfg.IndexPath)
		return nil
	}
	fmt.Fprintf(c.App.Writer, "indexed %d of %d titles in %s\n", st.Indexed, st.Lines, st.Duration.Round(time.Millisecond))
	return nil
}

func incompleteHint(err error) error {
	if errors.Is(err, builder.ErrIncompleteIndex) {
		return fmt.Errorf("%w; run build --force to replace it", err)
	}
	return err
}

// downloadClient bounds the wait for response headers only; the dump body
// itself can take a long time.
func downloadClient() *http.Client {
	return &http.Client{Transport: &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		ResponseHeaderTimeout: 30 * time.Second,
	}}
}

func (e *env) open(ctx context.Context) (*resolver.Resolver, error) {
	return wikisearch.OpenFinder(ctx, e.cfg, e.cache,
		wikisearch.WithLogger(e.log), wikisearch.WithMetrics(e.m))
}

func (e *env) findCommand(c *cli.Context) error {
	q := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(q) == "" {
		return errors.New("query is required")
	}
	r, err := e.open(c.Context)
	if err != nil {
		return err
	}
	defer r.Close()
	return printTitles(c.Context, c.App.Writer, r, q, c.Int("top"))
}

func (e *env) shellCommand(c *cli.Context) error {
	r, err := e.open(c.Context)
	if err != nil {
		return err
	}
	defer r.Close()

	g, ctx := errgroup.WithContext(c.Context)
	addr := c.String("metrics-addr")
	if addr == "" {
		addr = e.cfg.MetricsAddr
	}
	if addr != "" {
		srv := &http.Server{Addr: addr, Handler: metrics.Handler(e.reg), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			e.log.Info("metrics listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}
	done := make(chan struct{})
	g.Go(func() error {
		defer close(done)
		sc := bufio.NewScanner(c.App.Reader)
		for sc.Scan() {
			if ctx.Err() != nil {
				return nil
			}
			if err := printTitles(ctx, c.App.Writer, r, sc.Text(), c.Int("top")); err != nil {
				return err
			}
		}
		return sc.Err()
	})
	if addr != "" {
		// input exhausted: stop the metrics server too
		g.Go(func() error {
			select {
			case <-done:
				return errStop
			case <-ctx.Done():
				return nil
			}
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, errStop) {
		return err
	}
	return nil
}

func (e *env) evalCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("cases file is required")
	}
	f, err := os.Open(c.Args().First())
	if err != nil {
		return err
	}
	defer f.Close()
	cases, err := eval.ReadCases(f)
	if err != nil {
		return fmt.Errorf("read cases: %w", err)
	}
	r, err := e.open(c.Context)
	if err != nil {
		return err
	}
	defer r.Close()
	rep, err := eval.Evaluate(c.Context, r, cases)
	if err != nil {
		return err
	}
	w := c.App.Writer
	fmt.Fprintf(w, "cases=%d hit@1=%.3f hit@5=%.3f mrr=%.3f\n", rep.Cases, rep.HitAt1, rep.HitAt5, rep.MRR)
	for _, q := range rep.Misses {
		fmt.Fprintf(w, "miss: %s\n", q)
	}
	return nil
}

var errStop = errors.New("input closed")

func printTitles(ctx context.Context, w io.Writer, r *resolver.Resolver, q string, top int) error {
	titles, err := r.Find(ctx, q, top)
	if err != nil {
		return err
	}
	if len(titles) == 0 {
		_, err = fmt.Fprintln(w, "-")
		return err
	}
	_, err = fmt.Fprintln(w, strings.Join(titles, "\n"))
	return err
}

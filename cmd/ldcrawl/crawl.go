package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/ldcrawl/internal/config"
	"github.com/nao1215/ldcrawl/internal/crawler"
	"github.com/nao1215/ldcrawl/internal/database"
	"github.com/nao1215/ldcrawl/internal/metrics"
	"github.com/nao1215/ldcrawl/internal/report"
	"github.com/nao1215/ldcrawl/internal/transport"
)

// drainTimeout bounds how long an interrupted crawl waits for aborted
// fetches to be delivered.
const drainTimeout = 5 * time.Second

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <uri>...",
		Short: "Crawl linked data starting from one or more URIs",
		Long: `Crawl fetches the seed URIs, converts every response into facts, and
follows the links found in RDF graphs and HTML pages.

Every fetched resource is recorded in the history database unless --no-db
is given. A report is printed when the crawl finishes or is interrupted.

Examples:
  # Crawl a graph two hops deep (the default)
  ldcrawl crawl https://data.example.org/graph.ttl

  # Only fetch the seeds
  ldcrawl crawl --depth 0 https://data.example.org/a https://data.example.org/b

  # Follow links to other hosts, write a Markdown report
  ldcrawl crawl --same-host=false --markdown -o report.md https://data.example.org/

  # Expose Prometheus metrics while crawling
  ldcrawl crawl --metrics-addr 127.0.0.1:9090 https://data.example.org/

Configuration file (.ldcrawl) example:
  sites:
    data.example.org:
      cookie: "session=abc123"
      headers:
        Authorization: "Bearer token"
      ignorePatterns:
        - "/admin/*"`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Fetch flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of concurrent fetches")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body size in bytes")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header")
	cmd.Flags().String("proxy", "",
		"Route requests through a SOCKS5 proxy (host:port)")

	// Link following flags
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum link hops from a seed (0 fetches only the seeds)")
	cmd.Flags().IntP("max-resources", "n", config.DefaultMaxResources,
		"Maximum number of resources to fetch")
	cmd.Flags().Bool("same-host", true,
		"Only follow links to the hosts of the seeds")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .ldcrawl in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// History and metrics
	cmd.Flags().Bool("no-db", false,
		"Do not record resources in the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")
	cmd.Flags().String("metrics-addr", "",
		"Serve Prometheus metrics on this address while crawling")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.Workers, err = flags.GetInt("workers"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.MaxDepth, err = flags.GetInt("depth"); err != nil {
		return nil, err
	}
	if cfg.MaxResources, err = flags.GetInt("max-resources"); err != nil {
		return nil, err
	}
	if cfg.SameHost, err = flags.GetBool("same-host"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	if cfg.MetricsAddr, err = flags.GetString("metrics-addr"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	cfg.Verbose = getBoolFlag(cmd, "verbose")

	if cfg.SiteConfigs, _, err = config.Load(cfg.ConfigFilePath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	cfg.Targets = args
	return cfg, nil
}

// progressListener prints one line per delivered resource.
type progressListener struct {
	mu  sync.Mutex
	out io.Writer
	n   int
}

func (p *progressListener) Notify(res crawler.Resource) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.n++
	detail := fmt.Sprintf("%d facts", len(res.Representation))
	if !res.OK() {
		detail = res.Status.String()
		if res.StatusCode != 0 {
			detail = fmt.Sprintf("%s %d", detail, res.StatusCode)
		}
	}
	_, err := fmt.Fprintf(p.out, "[%d] %s (%s)\n", p.n, res.URI, detail)
	return err
}

// runCrawl executes the crawl and writes the report.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) error {
	tr, err := transport.New(cfg.TransportOptions()...)
	if err != nil {
		return fmt.Errorf("failed to create transport: %w", err)
	}

	var m *metrics.Metrics
	crawlerOpts := []crawler.Option{
		crawler.WithLogger(logger),
		crawler.WithWorkers(cfg.Workers),
	}
	if cfg.MetricsAddr != "" {
		m = metrics.New()
		crawlerOpts = append(crawlerOpts, crawler.WithMetrics(m))
	}
	c := crawler.New(tr, crawlerOpts...)
	defer c.Close()

	collector := crawler.NewCollector()
	c.AddListener(collector)
	c.AddListener(&progressListener{out: stderr})

	startedAt := time.Now()
	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		if err := db.BeginCrawl(ctx, c.SessionID(), cfg.Targets, startedAt); err != nil {
			return fmt.Errorf("failed to record crawl: %w", err)
		}
		defer func() {
			// The crawl context may already be cancelled by a signal
			finishCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
			defer cancel()
			if err := db.FinishCrawl(finishCtx, c.SessionID(), time.Now()); err != nil {
				logger.Error("failed to finish crawl record", "error", err)
			}
		}()
		c.AddListener(database.NewRecorder(db, c.SessionID()))
		logger.Info("recording crawl", "db", db.Path(), "crawl_id", c.SessionID())
	}

	// Registered last so that a resource is recorded before its links are
	// submitted.
	site := cfg.SiteFor(firstHost(cfg.Targets))
	follower := crawler.NewFollower(c,
		crawler.WithMaxDepth(site.Depth),
		crawler.WithMaxResources(cfg.MaxResources),
		crawler.WithSameHost(cfg.SameHost),
		crawler.WithIgnorePatterns(site.IgnorePatterns),
		crawler.WithFollowPatterns(site.FollowPatterns),
		crawler.WithFollowerLogger(logger),
	)
	c.AddListener(follower)

	fmt.Fprintf(stderr, "Crawling %d seed(s) (crawl %s)...\n", len(cfg.Targets), c.SessionID())

	interrupted, err := crawlWithMetrics(ctx, cfg, c, follower, m, logger)
	if err != nil {
		return err
	}
	if interrupted {
		fmt.Fprintln(stderr, "Interrupted; reporting partial results.")
		_ = c.Close() //nolint:errcheck // Close never fails
		drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		_ = c.Wait(drainCtx) //nolint:errcheck // Best effort drain
		cancel()
	}

	finishedAt := time.Now()
	stats := c.Stats()
	fmt.Fprintf(stderr, "Crawl finished in %s: %d completed, %d failed\n\n",
		finishedAt.Sub(startedAt).Round(time.Millisecond), stats.Completed, stats.Failed)

	summary := report.NewSummary(c.SessionID(), cfg.Targets, startedAt, finishedAt, collector.Resources())
	return writeReport(stdout, cfg.ReportFile, formatFromFlags(cfg.JSONReport, cfg.MarkdownReport), cfg.Verbose, summary)
}

// crawlWithMetrics seeds the crawl and waits for it, serving metrics in
// parallel when configured. It reports whether ctx ended the crawl early.
func crawlWithMetrics(ctx context.Context, cfg *config.Config, c *crawler.Crawler, follower *crawler.Follower, m *metrics.Metrics, logger *slog.Logger) (bool, error) {
	g, gctx := errgroup.WithContext(ctx)
	crawlCtx, crawlDone := context.WithCancel(gctx)
	defer crawlDone()

	if m != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Info("serving metrics", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-crawlCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	var interrupted bool
	g.Go(func() error {
		defer crawlDone()
		for _, seed := range cfg.Targets {
			if err := follower.Seed(seed); err != nil {
				return fmt.Errorf("invalid seed %q: %w", seed, err)
			}
		}
		if err := c.Wait(crawlCtx); err != nil {
			if ctx.Err() != nil {
				interrupted = true
				return nil
			}
			return err
		}
		return nil
	})

	err := g.Wait()
	return interrupted, err
}

// firstHost returns the host of the first parsable seed.
func firstHost(seeds []string) string {
	for _, s := range seeds {
		if u, err := url.Parse(s); err == nil && u.Host != "" {
			return u.Host
		}
	}
	return ""
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pevans/udnfetch/discovery"
	"github.com/pevans/udnfetch/logger"
	"github.com/pevans/udnfetch/newsfeed"
	"github.com/pevans/udnfetch/progress"
	"github.com/pevans/udnfetch/publisher"
	"github.com/pevans/udnfetch/session"
)

// scrapeOptions holds the flags of the scrape command.
type scrapeOptions struct {
	keyword     string
	startDate   string
	endDate     string
	maxPages    int
	maxArticles int
	headless    bool
	manualLogin bool
	replayDir   string
	output      string
	preview     int
	publish     bool
	noArchive   bool
	quiet       bool
}

func scrapeCommand() *cobra.Command {
	opts := &scrapeOptions{}
	defaultStart, defaultEnd := defaultDateRange(nowFunc())

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Search the archive and fetch every listed article",
		Long: `Submit a keyword and date range to the UDN news archive, walk the result
listing and extract each article. Records are written to a CSV file and the
run is archived locally.

Pressing Ctrl-C stops the crawl; the records fetched so far are still saved.`,
		Example: `  udnfetch scrape --keyword 颱風 --start 2024-07-01 --end 2024-07-31
  udnfetch scrape --keyword 臺灣 --max-articles 100 --max-pages 3 --headless=false
  udnfetch scrape --keyword test --replay ./testdata/portal`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("headless") {
				opts.headless = cfg.Browser.Headless
			}
			return runScrape(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.keyword, "keyword", "k", "", "search keyword (required)")
	flags.StringVar(&opts.startDate, "start", defaultStart, "start date (YYYY-MM-DD)")
	flags.StringVar(&opts.endDate, "end", defaultEnd, "end date (YYYY-MM-DD)")
	flags.IntVar(&opts.maxPages, "max-pages", 0, "maximum listing pages to visit (0 means no cap)")
	flags.IntVar(&opts.maxArticles, "max-articles", newsfeed.DefaultMaxArticles, "maximum articles to fetch")
	flags.BoolVar(&opts.headless, "headless", true, "run the browser without a window")
	flags.BoolVar(&opts.manualLogin, "manual-login", false, "pause after the login link so you can log in by hand")
	flags.StringVar(&opts.replayDir, "replay", "", "serve pages from a recorded fixture directory instead of a browser")
	flags.StringVarP(&opts.output, "output", "o", "", "CSV output path (default <output dir>/udn_<keyword>_新聞資料.csv)")
	flags.IntVar(&opts.preview, "preview", 10, "number of records to preview")
	flags.BoolVar(&opts.publish, "publish", false, "publish records to the configured redis stream")
	flags.BoolVar(&opts.noArchive, "no-archive", false, "do not save the run to the local archive")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "do not print progress lines")
	_ = cmd.MarkFlagRequired("keyword")

	return cmd
}

func runScrape(cmd *cobra.Command, opts *scrapeOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.For("scrape")
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	criteria := newsfeed.SearchCriteria{
		Keyword:   opts.keyword,
		StartDate: opts.startDate,
		EndDate:   opts.endDate,
	}
	limits := newsfeed.RunLimits{
		MaxArticles: opts.maxArticles,
		Headless:    opts.headless,
		ManualLogin: opts.manualLogin,
	}
	if opts.maxPages > 0 {
		limits.MaxPages = &opts.maxPages
	}

	opener, err := newOpener(opts, errOut, log)
	if err != nil {
		return err
	}
	svc, err := discovery.NewService(cfg.Site, cfg.Delays, opener, logger.For("discovery"))
	if err != nil {
		return err
	}

	sinks := []progress.Sink{progress.LogSink{Log: log}}
	if !opts.quiet {
		sinks = append(sinks, progress.NewConsole(errOut))
	}

	result, err := svc.Run(ctx, criteria, limits, progress.Multi(sinks...))
	if err != nil {
		return err
	}

	if result.Partial() {
		fmt.Fprintf(errOut, "Warning: crawl stopped early (%s): %v\n", result.FailedAt, result.Err)
		fmt.Fprintf(errOut, "Warning: keeping the %d records fetched before the failure\n", len(result.Records))
	}

	printRunSummary(out, result)
	if len(result.Records) == 0 {
		fmt.Fprintln(out, "No articles were collected. Try a different keyword or date range.")
	} else {
		fmt.Fprintln(out)
		printPreview(out, result.Records, opts.preview)
		fmt.Fprintln(out)
		printDateCounts(out, newsfeed.CountByDate(result.Records))
	}

	path := csvPath(opts.output, cfg.Output.Dir, opts.keyword)
	if err := newsfeed.SaveCSV(path, result.Records); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nSaved %d records to %s\n", len(result.Records), path)

	if !opts.noArchive {
		if err := archiveRun(result); err != nil {
			log.Error().Err(err).Msg("Failed to archive run")
			fmt.Fprintf(errOut, "Warning: run was not archived: %v\n", err)
		} else {
			fmt.Fprintf(out, "Archived run %s\n", result.ID)
		}
	}

	if opts.publish {
		n, err := publishRun(ctx, result, log)
		if err != nil {
			return fmt.Errorf("failed to publish records (%d published): %w", n, err)
		}
		fmt.Fprintf(out, "Published %d records\n", n)
	}

	return nil
}

// newOpener picks the session backend: recorded fixtures when --replay is
// set, Chrome otherwise.
func newOpener(opts *scrapeOptions, prompt io.Writer, log zerolog.Logger) (session.Opener, error) {
	if opts.replayDir != "" {
		m, err := session.LoadFixtures(opts.replayDir)
		if err != nil {
			return nil, err
		}
		log.Info().Str("dir", opts.replayDir).Int("pages", len(m.Routes)).Msg("Replaying recorded pages")
		return session.MemoryOpener(m), nil
	}

	return session.ChromeOpener(session.ChromeOptions{
		ExecPath:  cfg.Browser.ExecPath,
		UserAgent: cfg.Browser.UserAgent,
		Input:     os.Stdin,
		Prompt:    prompt,
		Log:       logger.For("chrome"),
	}), nil
}

func archiveRun(result *discovery.RunResult) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	_, err = store.SaveRun(result)
	return err
}

func publishRun(ctx context.Context, result *discovery.RunResult, log zerolog.Logger) (int, error) {
	if !cfg.Redis.Enabled() {
		return 0, errors.New("redis address is not configured (set redis.addr or UDNFETCH_REDIS_ADDR)")
	}

	// Publish even when the crawl was interrupted.
	ctx = context.WithoutCancel(ctx)

	pub := publisher.NewRedisPublisher(cfg.Redis.Addr, cfg.Redis.DB, cfg.Redis.Stream, cfg.Redis.MaxLength, log)
	defer pub.Close()

	if err := pub.Ping(ctx); err != nil {
		return 0, err
	}
	return pub.PublishRun(ctx, result)
}

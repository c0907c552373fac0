package discovery

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pevans/udnfetch/newsfeed"
	"github.com/pevans/udnfetch/progress"
	"github.com/pevans/udnfetch/scraper"
	"github.com/pevans/udnfetch/session"
)

// CollectStats summarizes the listing phase of a run.
type CollectStats struct {
	TotalResults int `json:"total_results"`
	Pages        int `json:"pages"`
	PagesVisited int `json:"pages_visited"`
}

// Collector submits the search form and gathers article links from the
// result listing.
type Collector struct {
	site   scraper.SiteConfig
	delays scraper.Delays
	count  *regexp.Regexp
	log    zerolog.Logger
}

// NewCollector creates a collector for site.
func NewCollector(site scraper.SiteConfig, delays scraper.Delays, log zerolog.Logger) (*Collector, error) {
	count, err := regexp.Compile(site.List.CountPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid count pattern: %w", err)
	}
	return &Collector{
		site:   site,
		delays: delays,
		count:  count,
		log:    log,
	}, nil
}

// Collect runs the whole listing phase: submit, analyze, then gather links.
// Links gathered before a failure are returned alongside the error.
func (c *Collector) Collect(ctx context.Context, sess session.Session, criteria newsfeed.SearchCriteria, limits newsfeed.RunLimits, sink progress.Sink) ([]newsfeed.LinkEntry, CollectStats, error) {
	var stats CollectStats
	if err := c.Submit(ctx, sess, criteria, sink); err != nil {
		return nil, stats, err
	}

	total, pages, err := c.Analyze(ctx, sess, limits, sink)
	if err != nil {
		return nil, stats, err
	}
	stats.TotalResults = total
	stats.Pages = pages

	links, visited, err := c.Links(ctx, sess, limits, pages, sink)
	stats.PagesVisited = visited
	return links, stats, err
}

// Submit opens the search page, fills the criteria and submits the form.
func (c *Collector) Submit(ctx context.Context, sess session.Session, criteria newsfeed.SearchCriteria, sink progress.Sink) error {
	sink.Report(progress.StageChanged{Label: progress.StageCriteria})
	if err := sess.Navigate(ctx, c.site.SearchURL(), c.delays.Navigation); err != nil {
		return fmt.Errorf("failed to open search page: %w", err)
	}

	fields := []struct{ sel, value string }{
		{c.site.Search.KeywordSelector, criteria.Keyword},
		{c.site.Search.StartDateSelector, criteria.StartDate},
		{c.site.Search.EndDateSelector, criteria.EndDate},
	}
	for _, f := range fields {
		if err := sess.Fill(ctx, f.sel, f.value); err != nil {
			return fmt.Errorf("failed to fill search form: %w", err)
		}
	}

	sink.Report(progress.StageChanged{Label: progress.StageSearch})
	if err := sess.Click(ctx, c.site.Search.SubmitSelector); err != nil {
		return fmt.Errorf("failed to submit search: %w", err)
	}
	if err := sess.Sleep(ctx, c.delays.Search); err != nil {
		return err
	}

	c.log.Info().
		Str("keyword", criteria.Keyword).
		Str("start", criteria.StartDate).
		Str("end", criteria.EndDate).
		Msg("Search submitted")
	return nil
}

// Analyze reads the total result count from the first listing page and
// computes how many pages to visit.
func (c *Collector) Analyze(ctx context.Context, sess session.Session, limits newsfeed.RunLimits, sink progress.Sink) (total, pages int, err error) {
	sink.Report(progress.StageChanged{Label: progress.StageAnalyze})
	html, err := sess.Content(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read search results: %w", err)
	}

	total = ParseTotalResults(html, c.count)
	pages = PageCount(total, limits)
	c.log.Info().
		Int("total_results", total).
		Int("pages", pages).
		Int("max_articles", limits.MaxArticles).
		Msg("Search results analyzed")
	return total, pages, nil
}

// Links walks listing pages 1..pages of the current search and returns at
// most limits.MaxArticles links in listing order. Collection stops as soon
// as the cap is reached. A listing page that cannot be opened or read is
// skipped.
func (c *Collector) Links(ctx context.Context, sess session.Session, limits newsfeed.RunLimits, pages int, sink progress.Sink) ([]newsfeed.LinkEntry, int, error) {
	sink.Report(progress.StageChanged{Label: progress.StageLinks})
	links := []newsfeed.LinkEntry{}
	if pages <= 0 {
		return links, 0, nil
	}

	firstPage, err := sess.URL(ctx)
	if err != nil {
		return links, 0, fmt.Errorf("failed to read results URL: %w", err)
	}

	visited := 0
pageLoop:
	for page := 1; page <= pages; page++ {
		sink.Report(progress.PageProgress{Current: page, Total: pages})

		if page > 1 {
			next := NextPageURL(firstPage, c.site.List.PageParam, page)
			if err := sess.Navigate(ctx, next, c.delays.Navigation); err != nil {
				if ctx.Err() != nil {
					return links, visited, ctx.Err()
				}
				c.log.Warn().Err(err).Int("page", page).Str("url", next).Msg("Skipping listing page")
				continue
			}
			if err := sess.Sleep(ctx, c.delays.Page); err != nil {
				return links, visited, err
			}
		}
		visited++

		anchors, err := sess.QueryAll(ctx, c.site.List.ResultSelector)
		if err != nil {
			if ctx.Err() != nil {
				return links, visited, ctx.Err()
			}
			c.log.Warn().Err(err).Int("page", page).Msg("Failed to read listing page")
			continue
		}

		for _, a := range anchors {
			links = append(links, c.entry(ctx, a))
			if len(links) >= limits.MaxArticles {
				break pageLoop
			}
		}

		c.log.Debug().Int("page", page).Int("links", len(links)).Msg("Listing page collected")
	}

	if len(links) > limits.MaxArticles {
		links = links[:limits.MaxArticles]
	}
	return links, visited, nil
}

// entry reads one listing anchor. An anchor without an href still yields an
// entry, with an empty URL, so every listed result gets a record.
func (c *Collector) entry(ctx context.Context, a session.Element) newsfeed.LinkEntry {
	title, err := a.Text(ctx)
	if err != nil {
		c.log.Debug().Err(err).Msg("Listing title unreadable")
	}
	entry := newsfeed.LinkEntry{Title: strings.TrimSpace(title)}

	href, ok, err := a.Attribute(ctx, "href")
	switch {
	case err != nil:
		c.log.Warn().Err(err).Str("title", entry.Title).Msg("Listing link unreadable")
	case !ok || strings.TrimSpace(href) == "":
		c.log.Warn().Str("title", entry.Title).Msg("Listing entry has no link")
	default:
		entry.URL = ResolveURL(c.site.BaseURL, href)
	}
	return entry
}

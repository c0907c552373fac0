// Package discovery crawls the news portal: it submits a search, walks the
// result listing and extracts every listed article.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pevans/udnfetch/newsfeed"
	"github.com/pevans/udnfetch/progress"
	"github.com/pevans/udnfetch/scraper"
	"github.com/pevans/udnfetch/session"
)

var (
	// ErrInvalidRequest wraps validation failures of a run request.
	ErrInvalidRequest = errors.New("invalid run request")
	// ErrSessionUnavailable is returned when no browser session could be
	// opened. It is the only error that fails a run outright.
	ErrSessionUnavailable = errors.New("failed to open browser session")
	// ErrRunPanicked is recorded in RunResult.Err when the crawl panicked.
	ErrRunPanicked = errors.New("crawl aborted unexpectedly")
)

// State is the furthest point a run reached.
type State int

const (
	StateInit State = iota
	StateSessionOpen
	StateLoggingIn
	StateSearchSubmitted
	StatePagesAnalyzed
	StateLinksCollected
	StateArticlesExtracted
	StateResultAssembled
	StateSessionClosed
)

var stateNames = [...]string{
	"init",
	"session_open",
	"logging_in",
	"search_submitted",
	"pages_analyzed",
	"links_collected",
	"articles_extracted",
	"result_assembled",
	"session_closed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// RunResult is the outcome of one crawl. Records is never nil and holds one
// record per link for every run that finished extraction.
type RunResult struct {
	ID           uuid.UUID
	Criteria     newsfeed.SearchCriteria
	Limits       newsfeed.RunLimits
	TotalResults int
	Pages        int
	PagesVisited int
	Links        []newsfeed.LinkEntry
	Records      []newsfeed.ArticleRecord
	State        State
	// Err is the run-level failure, if any. Records then holds whatever
	// was extracted before it, and FailedAt is the last state reached.
	Err        error
	FailedAt   State
	StartedAt  time.Time
	FinishedAt time.Time
}

// Partial reports whether the run stopped early.
func (r *RunResult) Partial() bool {
	return r.Err != nil
}

// Service runs crawls against one site.
type Service struct {
	site      scraper.SiteConfig
	delays    scraper.Delays
	open      session.Opener
	collector *Collector
	extractor *Extractor
	log       zerolog.Logger
}

// NewService creates a crawl service. open is called once per run.
func NewService(site scraper.SiteConfig, delays scraper.Delays, open session.Opener, log zerolog.Logger) (*Service, error) {
	if err := site.Validate(); err != nil {
		return nil, fmt.Errorf("invalid site configuration: %w", err)
	}
	if open == nil {
		return nil, errors.New("session opener is required")
	}
	collector, err := NewCollector(site, delays, log)
	if err != nil {
		return nil, err
	}
	return &Service{
		site:      site,
		delays:    delays,
		open:      open,
		collector: collector,
		extractor: NewExtractor(site, delays, log),
		log:       log,
	}, nil
}

// Run performs one crawl. It returns an error only when the request is
// invalid or no session could be opened; any later failure is recorded in
// RunResult.Err and the records gathered so far are still returned.
func (s *Service) Run(ctx context.Context, criteria newsfeed.SearchCriteria, limits newsfeed.RunLimits, sink progress.Sink) (*RunResult, error) {
	limits = limits.WithDefaults()
	if err := criteria.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if err := limits.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if sink == nil {
		sink = progress.Nop()
	}

	result := &RunResult{
		ID:        uuid.New(),
		Criteria:  criteria,
		Limits:    limits,
		Links:     []newsfeed.LinkEntry{},
		Records:   []newsfeed.ArticleRecord{},
		State:     StateInit,
		StartedAt: time.Now(),
	}
	log := s.log.With().Str("run_id", result.ID.String()).Logger()

	sink.Report(progress.StageChanged{Label: progress.StageOpening})
	sess, err := s.open(ctx, limits.Headless)
	if err != nil {
		sink.Report(progress.StageChanged{Label: progress.StageComplete})
		log.Error().Err(err).Msg("Could not open browser session")
		return nil, fmt.Errorf("%w: %w", ErrSessionUnavailable, err)
	}
	result.State = StateSessionOpen

	defer func() {
		sink.Report(progress.StageChanged{Label: progress.StageComplete})
		if err := sess.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close browser session")
		}
		result.State = StateSessionClosed
		result.FinishedAt = time.Now()
	}()

	if err := s.crawl(ctx, sess, result, sink, log); err != nil {
		result.Err = err
		result.FailedAt = result.State
		log.Error().
			Err(err).
			Str("state", result.State.String()).
			Int("records", len(result.Records)).
			Msg("Crawl failed, returning partial results")
	}

	result.State = StateResultAssembled
	log.Info().
		Int("links", len(result.Links)).
		Int("records", len(result.Records)).
		Msg("Crawl finished")
	return result, nil
}

// crawl runs every stage after the session is open. Records are appended to
// result as they are produced so they survive a failure.
func (s *Service) crawl(ctx context.Context, sess session.Session, result *RunResult, sink progress.Sink, log zerolog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrRunPanicked, r)
		}
	}()

	result.State = StateLoggingIn
	s.login(ctx, sess, result.Limits, sink, log)

	if err := s.collector.Submit(ctx, sess, result.Criteria, sink); err != nil {
		return err
	}
	result.State = StateSearchSubmitted

	total, pages, err := s.collector.Analyze(ctx, sess, result.Limits, sink)
	if err != nil {
		return err
	}
	result.TotalResults = total
	result.Pages = pages
	result.State = StatePagesAnalyzed

	links, visited, err := s.collector.Links(ctx, sess, result.Limits, pages, sink)
	result.Links = links
	result.PagesVisited = visited
	if err != nil {
		return err
	}
	result.State = StateLinksCollected

	sink.Report(progress.StageChanged{Label: progress.StageArticles})
	sink.Report(progress.ArticleProgress{Current: 0, Total: len(links)})
	for i, link := range links {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec := s.safeExtract(ctx, sess, link, i+1, len(links), sink)
		result.Records = append(result.Records, rec)
	}
	result.State = StateArticlesExtracted

	sink.Report(progress.StageChanged{Label: progress.StageAssembling})
	return nil
}

// login clicks the portal's login link when there is one. Nothing here is
// fatal: a failed login leaves the search to run as a guest.
func (s *Service) login(ctx context.Context, sess session.Session, limits newsfeed.RunLimits, sink progress.Sink, log zerolog.Logger) {
	sink.Report(progress.StageChanged{Label: progress.StageLogin})

	if err := sess.Navigate(ctx, s.site.SearchURL(), s.delays.Navigation); err != nil {
		log.Warn().Err(err).Msg("Landing page unavailable, skipping login")
		return
	}

	link, err := s.findLoginLink(ctx, sess)
	if err != nil {
		log.Warn().Err(err).Msg("Login link lookup failed")
		return
	}
	if link == nil {
		log.Debug().Msg("No login link, continuing as guest")
		return
	}

	if err := link.Click(ctx); err != nil {
		log.Warn().Err(err).Msg("Login click failed")
		return
	}

	if limits.ManualLogin {
		sink.Report(progress.StageChanged{Label: progress.StageManual})
		if err := sess.WaitForInput(ctx); err != nil {
			log.Warn().Err(err).Msg("Manual login interrupted")
			return
		}
	}

	if err := sess.Sleep(ctx, s.delays.Login); err != nil {
		log.Warn().Err(err).Msg("Login settle interrupted")
		return
	}
	log.Info().Bool("manual", limits.ManualLogin).Msg("Login link clicked")
}

// findLoginLink returns the first element matching the login selector whose
// text contains the login link text, or nil.
func (s *Service) findLoginLink(ctx context.Context, sess session.Session) (session.Element, error) {
	cfg := s.site.Login
	if cfg.LinkSelector == "" {
		return nil, nil
	}

	candidates, err := sess.QueryAll(ctx, cfg.LinkSelector)
	if err != nil {
		return nil, err
	}
	for _, el := range candidates {
		if cfg.LinkText == "" {
			return el, nil
		}
		text, err := el.Text(ctx)
		if err != nil {
			continue
		}
		if strings.Contains(text, cfg.LinkText) {
			return el, nil
		}
	}
	return nil, nil
}

// safeExtract runs the extractor, turning a panic into a placeholder record
// that keeps the listing title.
func (s *Service) safeExtract(ctx context.Context, sess session.Session, link newsfeed.LinkEntry, index, total int, sink progress.Sink) (rec newsfeed.ArticleRecord) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().
				Int("index", index).
				Str("url", link.URL).
				Interface("panic", r).
				Msg("Article extraction panicked")
			rec = newsfeed.ExtractionFailed(link, fmt.Errorf("%v", r))
		}
	}()
	return s.extractor.Extract(ctx, sess, link, index, total, sink)
}

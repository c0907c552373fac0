package discovery

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pevans/udnfetch/newsfeed"
	"github.com/pevans/udnfetch/progress"
	"github.com/pevans/udnfetch/scraper"
	"github.com/pevans/udnfetch/session"
)

var (
	errElementMissing = errors.New("element not found")
	errEmptyText      = errors.New("element has no text")
	errMissingLink    = errors.New("listing entry has no link")
)

// fieldResult is the outcome of extracting one record field.
type fieldResult struct {
	value string
	err   error
}

func found(v string) fieldResult { return fieldResult{value: v} }
func failed(err error) fieldResult { return fieldResult{err: err} }

// orDefault returns the value, or def when extraction failed or produced
// nothing.
func (r fieldResult) orDefault(def string) string {
	if r.err != nil || r.value == "" {
		return def
	}
	return r.value
}

// Extractor turns an article page into an ArticleRecord.
type Extractor struct {
	site   scraper.SiteConfig
	delays scraper.Delays
	log    zerolog.Logger
}

// NewExtractor creates an extractor for site.
func NewExtractor(site scraper.SiteConfig, delays scraper.Delays, log zerolog.Logger) *Extractor {
	return &Extractor{
		site:   site,
		delays: delays,
		log:    log,
	}
}

// Extract navigates to link and reads the article. It never fails: every
// field that cannot be read is set to its sentinel. index is 1-based.
func (x *Extractor) Extract(ctx context.Context, sess session.Session, link newsfeed.LinkEntry, index, total int, sink progress.Sink) newsfeed.ArticleRecord {
	sink.Report(progress.ArticleProgress{Current: index, Total: total})
	if strings.TrimSpace(link.URL) == "" {
		x.log.Warn().Int("index", index).Str("title", link.Title).Msg("Skipping listing entry without a link")
		return newsfeed.ProcessingFailed(index, errMissingLink)
	}

	articleURL := ResolveURL(x.site.BaseURL, link.URL)
	log := x.log.With().Int("index", index).Str("url", articleURL).Logger()

	if err := sess.Navigate(ctx, articleURL, x.delays.Navigation); err != nil {
		log.Warn().Err(err).Msg("Article navigation failed")
		return newsfeed.NavigationFailed(index, articleURL, err)
	}
	if err := sess.Sleep(ctx, x.delays.Article); err != nil {
		log.Debug().Err(err).Msg("Settle delay interrupted")
	}

	rec := newsfeed.ArticleRecord{
		NewsID: ExtractNewsID(articleURL),
		URL:    articleURL,
	}

	title := x.title(ctx, sess)
	if title.err != nil {
		log.Warn().Err(title.err).Msg("Title extraction failed")
	} else {
		sink.Report(progress.ArticleProgress{Current: index, Total: total, Title: title.value})
	}
	rec.Title = newsfeed.TitleFailed(index)
	if title.err == nil {
		rec.Title = title.value
	}

	date := x.date(ctx, sess)
	if date.err != nil {
		log.Debug().Err(date.err).Msg("Date not found")
	}
	rec.Date = date.orDefault(newsfeed.UnknownDate)

	content := x.content(ctx, sess)
	if content.err != nil {
		log.Warn().Err(content.err).Msg("Content extraction failed")
	}
	rec.Content = content.orDefault(newsfeed.ContentFailed)

	return rec
}

// title reads the heading as is. An empty heading is kept: only a missing or
// unreadable one gets the placeholder.
func (x *Extractor) title(ctx context.Context, sess session.Session) fieldResult {
	text, err := x.elementText(ctx, sess, x.site.Article.TitleSelector)
	if err != nil {
		return failed(err)
	}
	return found(text)
}

func (x *Extractor) date(ctx context.Context, sess session.Session) fieldResult {
	if x.site.Article.DateSelector == "" {
		return failed(errElementMissing)
	}
	text, err := x.firstText(ctx, sess, x.site.Article.DateSelector)
	if err != nil {
		return failed(err)
	}
	d := ExtractDate(text)
	if d == newsfeed.UnknownDate {
		return failed(errors.New("no date in byline"))
	}
	return found(d)
}

// content tries each container selector in order and keeps the first one
// whose paragraphs hold text. The page body is the last resort.
func (x *Extractor) content(ctx context.Context, sess session.Session) fieldResult {
	for _, sel := range x.site.Article.ContentSelectors {
		el, err := sess.Query(ctx, sel)
		if err != nil || el == nil {
			continue
		}
		paragraphs, err := el.QueryAll(ctx, x.site.Article.ParagraphSelector)
		if err != nil {
			continue
		}

		var parts []string
		for _, p := range paragraphs {
			text, err := p.Text(ctx)
			if err != nil {
				continue
			}
			if text = strings.TrimSpace(text); text != "" {
				parts = append(parts, text)
			}
		}
		if len(parts) > 0 {
			return found(strings.Join(parts, "\n"))
		}
	}

	body := x.site.Article.BodySelector
	if body == "" {
		body = "body"
	}
	text, err := x.firstText(ctx, sess, body)
	if err != nil {
		return failed(err)
	}
	return found(text)
}

// firstText returns the trimmed text of the first element matching sel,
// failing when that text is empty.
func (x *Extractor) firstText(ctx context.Context, sess session.Session, sel string) (string, error) {
	text, err := x.elementText(ctx, sess, sel)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", errEmptyText
	}
	return text, nil
}

// elementText returns the trimmed text of the first element matching sel.
func (x *Extractor) elementText(ctx context.Context, sess session.Session, sel string) (string, error) {
	el, err := sess.Query(ctx, sel)
	if err != nil {
		return "", err
	}
	if el == nil {
		return "", errElementMissing
	}
	text, err := el.Text(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

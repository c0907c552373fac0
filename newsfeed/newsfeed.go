package newsfeed

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel field values used when extraction of a field fails. They are
// distinct from a genuinely empty value.
const (
	UnknownID     = "Unknown ID"
	UnknownDate   = "Unknown date"
	ContentFailed = "Content extraction failed"
)

// DefaultMaxArticles is the article cap used when a run request does not
// specify one.
const DefaultMaxArticles = 50

// DateLayout is the ISO date layout used for search criteria and article
// dates.
const DateLayout = "2006-01-02"

// Validation errors for run requests.
var (
	ErrEmptyKeyword     = errors.New("keyword must not be empty")
	ErrInvalidDate      = errors.New("dates must use the YYYY-MM-DD format")
	ErrInvalidMaxLimits = errors.New("max_articles must be a positive integer")
)

// SearchCriteria is the keyword and date range submitted to the portal's
// search form. It is read-only for the duration of a run.
type SearchCriteria struct {
	Keyword   string `json:"keyword" yaml:"keyword"`
	StartDate string `json:"start_date" yaml:"start_date"`
	EndDate   string `json:"end_date" yaml:"end_date"`
}

// Validate checks that the keyword is non-empty and both dates parse.
func (c SearchCriteria) Validate() error {
	if strings.TrimSpace(c.Keyword) == "" {
		return ErrEmptyKeyword
	}
	for _, d := range []string{c.StartDate, c.EndDate} {
		if _, err := time.Parse(DateLayout, d); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidDate, d)
		}
	}
	return nil
}

// RunLimits bounds how much of the result listing a run traverses.
type RunLimits struct {
	// MaxPages caps the number of listing pages visited. Nil (or a
	// non-positive value) means no cap.
	MaxPages    *int `json:"max_pages,omitempty"`
	MaxArticles int  `json:"max_articles"`
	Headless    bool `json:"headless"`
	ManualLogin bool `json:"manual_login"`
}

// PageCap returns the effective page cap and whether one is set.
func (l RunLimits) PageCap() (int, bool) {
	if l.MaxPages == nil || *l.MaxPages <= 0 {
		return 0, false
	}
	return *l.MaxPages, true
}

// WithDefaults fills MaxArticles with DefaultMaxArticles when unset.
func (l RunLimits) WithDefaults() RunLimits {
	if l.MaxArticles == 0 {
		l.MaxArticles = DefaultMaxArticles
	}
	return l
}

// Validate rejects a non-positive article cap.
func (l RunLimits) Validate() error {
	if l.MaxArticles <= 0 {
		return ErrInvalidMaxLimits
	}
	return nil
}

// LinkEntry is one result-listing anchor. URL is always absolute.
type LinkEntry struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ArticleRecord is the extracted form of one article. Every field holds
// either real data or one of the documented sentinels, never an empty
// placeholder for a failed step.
type ArticleRecord struct {
	NewsID  string `json:"news_id"`
	Title   string `json:"title"`
	Date    string `json:"date"`
	Content string `json:"content"`
	URL     string `json:"url,omitempty"`
}

// NavigationFailed builds the placeholder record for an article whose page
// could not be opened.
func NavigationFailed(index int, url string, err error) ArticleRecord {
	return ArticleRecord{
		NewsID:  UnknownID,
		Title:   fmt.Sprintf("Article %d (navigation failed)", index),
		Date:    UnknownDate,
		Content: fmt.Sprintf("%s: %v", ContentFailed, err),
		URL:     url,
	}
}

// ProcessingFailed builds the placeholder record for a listing entry that
// could not be processed at all.
func ProcessingFailed(index int, err error) ArticleRecord {
	return ArticleRecord{
		NewsID:  UnknownID,
		Title:   fmt.Sprintf("Article %d (processing failed)", index),
		Date:    UnknownDate,
		Content: fmt.Sprintf("%s: %v", ContentFailed, err),
	}
}

// TitleFailed is the synthesized title used when no heading can be read.
func TitleFailed(index int) string {
	return fmt.Sprintf("Article %d (title extraction failed)", index)
}

// ExtractionFailed builds the placeholder record for an article whose
// extraction aborted unexpectedly. The listing title is kept.
func ExtractionFailed(link LinkEntry, err error) ArticleRecord {
	return ArticleRecord{
		NewsID:  UnknownID,
		Title:   link.Title,
		Date:    UnknownDate,
		Content: fmt.Sprintf("%s: %v", ContentFailed, err),
		URL:     link.URL,
	}
}

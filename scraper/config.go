package scraper

import (
	"errors"
	"net/url"
	"time"
)

// ListingPageSize is the fixed number of results per listing page.
const ListingPageSize = 20

// Configuration errors.
var (
	ErrMissingBaseURL    = errors.New("site base_url is required")
	ErrInvalidBaseURL    = errors.New("site base_url must be an absolute http(s) URL")
	ErrMissingSelector   = errors.New("required selector is empty")
	ErrNoContentSelector = errors.New("at least one content selector is required")
)

// SiteConfig defines how to drive the portal's search form and extract
// articles from it.
type SiteConfig struct {
	BaseURL    string        `yaml:"base_url" json:"base_url"`
	SearchPath string        `yaml:"search_path" json:"search_path"`
	Login      LoginConfig   `yaml:"login" json:"login"`
	Search     SearchConfig  `yaml:"search" json:"search"`
	List       ListConfig    `yaml:"list" json:"list"`
	Article    ArticleConfig `yaml:"article" json:"article"`
}

// LoginConfig locates the optional IP-login trigger on the landing page.
type LoginConfig struct {
	LinkSelector string `yaml:"link_selector" json:"link_selector"`
	LinkText     string `yaml:"link_text" json:"link_text"`
}

// SearchConfig names the search form fields.
type SearchConfig struct {
	KeywordSelector   string `yaml:"keyword_selector" json:"keyword_selector"`
	StartDateSelector string `yaml:"start_date_selector" json:"start_date_selector"`
	EndDateSelector   string `yaml:"end_date_selector" json:"end_date_selector"`
	SubmitSelector    string `yaml:"submit_selector" json:"submit_selector"`
}

// ListConfig defines how to read result listing pages.
type ListConfig struct {
	ResultSelector string `yaml:"result_selector" json:"result_selector"`
	// CountPattern matches the total result count in the page markup. The
	// first capture group must be the number.
	CountPattern string `yaml:"count_pattern" json:"count_pattern"`
	PageParam    string `yaml:"page_param" json:"page_param"`
}

// ArticleConfig defines how to extract fields from an article page.
type ArticleConfig struct {
	TitleSelector string `yaml:"title_selector" json:"title_selector"`
	DateSelector  string `yaml:"date_selector" json:"date_selector"`
	// ContentSelectors are tried in order; the first container with
	// non-empty paragraph text wins.
	ContentSelectors  []string `yaml:"content_selectors" json:"content_selectors"`
	ParagraphSelector string   `yaml:"paragraph_selector" json:"paragraph_selector"`
	BodySelector      string   `yaml:"body_selector" json:"body_selector"`
}

// Delays are the fixed settle waits inserted after page transitions. They
// are unconditional; the portal gives no readiness signal to wait on.
type Delays struct {
	Search     time.Duration `yaml:"search" json:"search"`
	Page       time.Duration `yaml:"page" json:"page"`
	Article    time.Duration `yaml:"article" json:"article"`
	Login      time.Duration `yaml:"login" json:"login"`
	Navigation time.Duration `yaml:"navigation_timeout" json:"navigation_timeout"`
}

// DefaultUDNConfig returns the configuration for udndata.com.
func DefaultUDNConfig() SiteConfig {
	return SiteConfig{
		BaseURL:    "https://udndata.com",
		SearchPath: "/ndapp/Index?cp=udn",
		Login: LoginConfig{
			LinkSelector: "a",
			LinkText:     "定址登入",
		},
		Search: SearchConfig{
			KeywordSelector:   "#SearchString",
			StartDateSelector: "#datepicker-start",
			EndDateSelector:   "#datepicker-end",
			SubmitSelector:    "button[name='submit']",
		},
		List: ListConfig{
			ResultSelector: "h2.control-pic a",
			CountPattern:   `共搜尋到\s*<span class="mark">(\d+)</span>筆資料`,
			PageParam:      "page",
		},
		Article: ArticleConfig{
			TitleSelector: "h1",
			DateSelector:  "span.story-source",
			ContentSelectors: []string{
				"article",
				"div.article",
				"div.content",
				"div.story",
			},
			ParagraphSelector: "p",
			BodySelector:      "body",
		},
	}
}

// DefaultDelays returns the settle delays observed to work against the
// portal.
func DefaultDelays() Delays {
	return Delays{
		Search:     5 * time.Second,
		Page:       3 * time.Second,
		Article:    2 * time.Second,
		Login:      3 * time.Second,
		Navigation: 30 * time.Second,
	}
}

// SearchURL returns the absolute URL of the landing search page.
func (c SiteConfig) SearchURL() string {
	return c.BaseURL + c.SearchPath
}

// Validate checks that the configuration can drive a run.
func (c SiteConfig) Validate() error {
	if c.BaseURL == "" {
		return ErrMissingBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}

	required := []string{
		c.Search.KeywordSelector,
		c.Search.StartDateSelector,
		c.Search.EndDateSelector,
		c.Search.SubmitSelector,
		c.List.ResultSelector,
		c.Article.TitleSelector,
		c.Article.ParagraphSelector,
	}
	for _, sel := range required {
		if sel == "" {
			return ErrMissingSelector
		}
	}
	if len(c.Article.ContentSelectors) == 0 {
		return ErrNoContentSelector
	}
	return nil
}

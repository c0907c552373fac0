package discovery

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/pevans/udnfetch/newsfeed"
	"github.com/pevans/udnfetch/scraper"
)

var (
	defaultCountPattern = regexp.MustCompile(scraper.DefaultUDNConfig().List.CountPattern)
	newsIDParam         = regexp.MustCompile(`news_id=(\d+)`)
	trailingNumber      = regexp.MustCompile(`/(\d+)$`)
	isoDate             = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`)
)

// ParseTotalResults reads the total result count from a listing page. The
// first capture group of pattern must be the number; a nil pattern uses the
// portal's default. Anything unparseable counts as zero results.
func ParseTotalResults(html string, pattern *regexp.Regexp) int {
	if pattern == nil {
		pattern = defaultCountPattern
	}
	m := pattern.FindStringSubmatch(html)
	if len(m) < 2 {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// PageCount returns how many listing pages to visit. Requests for fewer
// articles than one listing page always visit exactly one page.
func PageCount(total int, limits newsfeed.RunLimits) int {
	var pages int
	if limits.MaxArticles < scraper.ListingPageSize {
		pages = 1
	} else {
		wanted := min(total, limits.MaxArticles)
		pages = int(math.Ceil(float64(wanted) / float64(scraper.ListingPageSize)))
	}

	if limit, ok := limits.PageCap(); ok && pages > limit {
		pages = limit
	}
	return pages
}

// NextPageURL points current at listing page n, rewriting an existing page
// parameter or appending one.
func NextPageURL(current, param string, n int) string {
	if param == "" {
		param = "page"
	}
	re := regexp.MustCompile(`([?&])` + regexp.QuoteMeta(param) + `=\d+`)
	if re.MatchString(current) {
		return re.ReplaceAllString(current, fmt.Sprintf("${1}%s=%d", param, n))
	}

	sep := "?"
	if strings.Contains(current, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s%s=%d", current, sep, param, n)
}

// ResolveURL makes href absolute against base. Absolute hrefs are returned
// unchanged.
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if ref.IsAbs() {
		return href
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}

// ExtractNewsID derives the article id from its URL: the news_id query
// parameter, else a trailing numeric path segment.
func ExtractNewsID(articleURL string) string {
	if m := newsIDParam.FindStringSubmatch(articleURL); m != nil {
		return m[1]
	}
	if m := trailingNumber.FindStringSubmatch(articleURL); m != nil {
		return m[1]
	}
	return newsfeed.UnknownID
}

// ExtractDate returns the first YYYY-MM-DD date in text.
func ExtractDate(text string) string {
	if m := isoDate.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return newsfeed.UnknownDate
}

package discovery

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pevans/udnfetch/newsfeed"
	"github.com/pevans/udnfetch/scraper"
	"github.com/pevans/udnfetch/session"
)

const (
	testBase    = "https://udndata.com"
	testResults = testBase + "/ndapp/Searchdec?udndbid=udn&SearchString=test"
)

var testSearchURL = scraper.DefaultUDNConfig().SearchURL()

// testDelays are non-zero so tests can see which settle waits happened;
// the memory session never actually sleeps.
var testDelays = scraper.Delays{
	Search:     5 * time.Second,
	Page:       3 * time.Second,
	Article:    2 * time.Second,
	Login:      3 * time.Second,
	Navigation: 30 * time.Second,
}

// portal describes a fake search result set.
type portal struct {
	total     int   // count shown on the first listing page
	perPage   []int // anchors on each listing page
	loginLink bool
}

func articleURL(id int) string {
	return fmt.Sprintf("%s/ndapp/Story2?news_id=%d", testBase, id)
}

func landingHTML(loginLink bool) string {
	var b strings.Builder
	b.WriteString(`<html><body>`)
	if loginLink {
		b.WriteString(`<a href="/ndapp/login">定址登入</a>`)
	}
	b.WriteString(`<a href="/about">About</a>
<form>
<input id="SearchString"><input id="datepicker-start"><input id="datepicker-end">
<button name="submit">Search</button>
</form></body></html>`)
	return b.String()
}

func listingHTML(total, firstID, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<html><body><div class="result">共搜尋到 <span class="mark">%d</span>筆資料</div>`, total)
	for i := 0; i < count; i++ {
		id := firstID + i
		fmt.Fprintf(&b, `<h2 class="control-pic"><a href="/ndapp/Story2?news_id=%d">Listing %d</a></h2>`, id, id)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func storyHTML(id int) string {
	return fmt.Sprintf(`<html><body>
<h1>Title %d</h1>
<span class="story-source">2024-01-%02d 聯合報</span>
<article><p>Paragraph one of %d.</p><p>  </p><p>Paragraph two.</p></article>
</body></html>`, id, id%28+1, id)
}

// build returns a memory session serving the portal. Article ids start at 1
// and run across listing pages in order.
func (p portal) build() *session.Memory {
	m := session.NewMemory()
	m.Routes[testSearchURL] = landingHTML(p.loginLink)
	m.Routes[testBase+"/ndapp/login"] = `<html><body>logged in</body></html>`
	m.Clicks["button[name='submit']"] = testResults

	id := 1
	for i, n := range p.perPage {
		page := testResults
		if i > 0 {
			page = NextPageURL(testResults, "page", i+1)
		}
		m.Routes[page] = listingHTML(p.total, id, n)
		for j := 0; j < n; j++ {
			m.Routes[articleURL(id+j)] = storyHTML(id + j)
		}
		id += n
	}
	return m
}

func visitedPage(m *session.Memory, n int) bool {
	target := NextPageURL(testResults, "page", n)
	for _, v := range m.Visited {
		if v == target {
			return true
		}
	}
	return false
}

func newTestService(t *testing.T, open session.Opener) *Service {
	t.Helper()
	svc, err := NewService(scraper.DefaultUDNConfig(), testDelays, open, zerolog.Nop())
	require.NoError(t, err)
	return svc
}

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	c, err := NewCollector(scraper.DefaultUDNConfig(), testDelays, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func testCriteria() newsfeed.SearchCriteria {
	return newsfeed.SearchCriteria{Keyword: "颱風", StartDate: "2024-01-01", EndDate: "2024-01-31"}
}

func intPtr(n int) *int { return &n }

// faultySession panics when navigating to one URL.
type faultySession struct {
	*session.Memory
	panicOn string
}

func (f *faultySession) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if url == f.panicOn {
		panic("renderer crashed")
	}
	return f.Memory.Navigate(ctx, url, timeout)
}

package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pevans/udnfetch/newsfeed"
	"github.com/pevans/udnfetch/progress"
)

// TestCollect_PagesFromResultCount verifies 45 results over three listing
// pages
func TestCollect_PagesFromResultCount(t *testing.T) {
	m := portal{total: 45, perPage: []int{20, 20, 5}}.build()
	rec := &progress.Recorder{}

	links, stats, err := newTestCollector(t).Collect(context.Background(), m, testCriteria(), newsfeed.RunLimits{MaxArticles: 50}, rec)
	require.NoError(t, err)

	assert.Equal(t, CollectStats{TotalResults: 45, Pages: 3, PagesVisited: 3}, stats)
	require.Len(t, links, 45)
	for i, l := range links {
		assert.Equal(t, articleURL(i+1), l.URL, "listing order is preserved")
	}
	assert.Equal(t, "Listing 1", links[0].Title)

	assert.Equal(t, "颱風", m.Filled["#SearchString"])
	assert.Equal(t, "2024-01-01", m.Filled["#datepicker-start"])
	assert.Equal(t, "2024-01-31", m.Filled["#datepicker-end"])
	assert.Equal(t, []time.Duration{5 * time.Second, 3 * time.Second, 3 * time.Second}, m.Sleeps)

	var pages []progress.PageProgress
	for _, e := range rec.Events {
		if p, ok := e.(progress.PageProgress); ok {
			pages = append(pages, p)
		}
	}
	assert.Equal(t, []progress.PageProgress{
		{Current: 1, Total: 3},
		{Current: 2, Total: 3},
		{Current: 3, Total: 3},
	}, pages)
	assert.Equal(t, []string{
		progress.StageCriteria,
		progress.StageSearch,
		progress.StageAnalyze,
		progress.StageLinks,
	}, rec.Stages())
}

// TestCollect_SmallRequestStaysOnFirstPage verifies small requests stay on
// the first page
func TestCollect_SmallRequestStaysOnFirstPage(t *testing.T) {
	m := portal{total: 200, perPage: []int{20, 20, 20}}.build()

	links, stats, err := newTestCollector(t).Collect(context.Background(), m, testCriteria(), newsfeed.RunLimits{MaxArticles: 15}, progress.Nop())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Pages)
	assert.Len(t, links, 15)
	assert.Equal(t, articleURL(15), links[14].URL)
	assert.False(t, visitedPage(m, 2))
}

// TestCollect_StopsAtCap verifies collection stops mid-page once the cap is
// reached
func TestCollect_StopsAtCap(t *testing.T) {
	// The portal under-reports, so page 1 alone overshoots the cap.
	m := portal{total: 20, perPage: []int{25, 20}}.build()

	links, stats, err := newTestCollector(t).Collect(context.Background(), m, testCriteria(), newsfeed.RunLimits{MaxArticles: 20}, progress.Nop())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Pages)
	assert.Len(t, links, 20)
	assert.False(t, visitedPage(m, 2))
}

// TestCollect_EarlyExitSkipsRemainingPages verifies later pages are not
// visited once the cap is met
func TestCollect_EarlyExitSkipsRemainingPages(t *testing.T) {
	m := portal{total: 100, perPage: []int{25, 20, 20}}.build()

	links, stats, err := newTestCollector(t).Collect(context.Background(), m, testCriteria(), newsfeed.RunLimits{MaxArticles: 25}, progress.Nop())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Pages)
	assert.Equal(t, 1, stats.PagesVisited)
	assert.Len(t, links, 25)
	assert.False(t, visitedPage(m, 2))
}

// TestCollect_PageCap verifies max pages bounds the traversal
func TestCollect_PageCap(t *testing.T) {
	m := portal{total: 200, perPage: []int{20, 20, 20, 20, 20}}.build()
	limits := newsfeed.RunLimits{MaxArticles: 100, MaxPages: intPtr(2)}

	links, stats, err := newTestCollector(t).Collect(context.Background(), m, testCriteria(), limits, progress.Nop())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Pages)
	assert.Len(t, links, 40)
	assert.False(t, visitedPage(m, 3))
}

// TestCollect_NoResults verifies zero results visit no listing pages
func TestCollect_NoResults(t *testing.T) {
	m := portal{total: 0, perPage: []int{0}}.build()

	links, stats, err := newTestCollector(t).Collect(context.Background(), m, testCriteria(), newsfeed.RunLimits{MaxArticles: 50}, progress.Nop())
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Pages)
	assert.Equal(t, 0, stats.PagesVisited)
	assert.NotNil(t, links)
	assert.Empty(t, links)
}

// TestCollect_SkipsBrokenListingPage verifies a listing page that fails to
// load is skipped
func TestCollect_SkipsBrokenListingPage(t *testing.T) {
	m := portal{total: 60, perPage: []int{20, 20, 20}}.build()
	m.Failures[NextPageURL(testResults, "page", 2)] = errors.New("timeout")

	links, stats, err := newTestCollector(t).Collect(context.Background(), m, testCriteria(), newsfeed.RunLimits{MaxArticles: 60}, progress.Nop())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Pages)
	assert.Equal(t, 2, stats.PagesVisited)
	require.Len(t, links, 40)
	assert.Equal(t, articleURL(41), links[20].URL)
}

// TestCollect_SubmitFailure verifies form errors propagate
func TestCollect_SubmitFailure(t *testing.T) {
	m := portal{total: 45, perPage: []int{20}}.build()
	m.Routes[testSearchURL] = `<html><body><p>maintenance</p></body></html>`

	_, _, err := newTestCollector(t).Collect(context.Background(), m, testCriteria(), newsfeed.RunLimits{MaxArticles: 50}, progress.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fill search form")
}

// TestCollect_KeepsAnchorsWithoutHref verifies an anchor without an href
// still takes its place in the listing
func TestCollect_KeepsAnchorsWithoutHref(t *testing.T) {
	m := portal{total: 3, perPage: []int{0}}.build()
	m.Routes[testResults] = `<html><body>共搜尋到 <span class="mark">3</span>筆資料
<h2 class="control-pic"><a href="/x/1">One</a></h2>
<h2 class="control-pic"><a>No link</a></h2>
<h2 class="control-pic"><a href="https://udn.com/news/story/2">  Two  </a></h2>
</body></html>`

	links, _, err := newTestCollector(t).Collect(context.Background(), m, testCriteria(), newsfeed.RunLimits{MaxArticles: 50}, progress.Nop())
	require.NoError(t, err)

	assert.Equal(t, []newsfeed.LinkEntry{
		{Title: "One", URL: "https://udndata.com/x/1"},
		{Title: "No link"},
		{Title: "Two", URL: "https://udn.com/news/story/2"},
	}, links)
}

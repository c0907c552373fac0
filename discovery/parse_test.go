package discovery

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pevans/udnfetch/newsfeed"
)

func TestParseTotalResults(t *testing.T) {
	tests := []struct {
		name string
		html string
		want int
	}{
		{"marked count", `<div>共搜尋到 <span class="mark">45</span>筆資料</div>`, 45},
		{"no whitespace", `共搜尋到<span class="mark">1200</span>筆資料`, 1200},
		{"missing", `<div>查無資料</div>`, 0},
		{"empty", ``, 0},
		{"not a number", `共搜尋到 <span class="mark">many</span>筆資料`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTotalResults(tt.html, nil))
		})
	}
}

// TestParseTotalResults_CustomPattern verifies a site-specific pattern is
// honoured
func TestParseTotalResults_CustomPattern(t *testing.T) {
	re := regexp.MustCompile(`(\d+) results`)
	assert.Equal(t, 7, ParseTotalResults("Found 7 results", re))
}

func TestPageCount(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		max      int
		maxPages *int
		want     int
	}{
		{"scenario A", 45, 50, nil, 3},
		{"scenario B small request", 200, 15, nil, 1},
		{"scenario D no results", 0, 50, nil, 0},
		{"small request ignores zero total", 0, 15, nil, 1},
		{"exactly one page", 20, 20, nil, 1},
		{"article cap bounds pages", 200, 50, nil, 3},
		{"total bounds pages", 21, 100, nil, 2},
		{"page cap", 200, 100, intPtr(2), 2},
		{"page cap above computed", 45, 50, intPtr(10), 3},
		{"zero page cap means none", 1000, 100, intPtr(0), 5},
		{"page cap on small request", 200, 10, intPtr(1), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limits := newsfeed.RunLimits{MaxArticles: tt.max, MaxPages: tt.maxPages}
			assert.Equal(t, tt.want, PageCount(tt.total, limits))
		})
	}
}

// TestPageCount_Properties checks the page arithmetic across a grid of
// inputs
func TestPageCount_Properties(t *testing.T) {
	for maxArticles := 1; maxArticles < 20; maxArticles++ {
		for total := 0; total <= 1000; total += 37 {
			assert.Equal(t, 1, PageCount(total, newsfeed.RunLimits{MaxArticles: maxArticles}),
				"max=%d total=%d", maxArticles, total)
		}
	}

	for maxArticles := 20; maxArticles <= 200; maxArticles += 9 {
		for total := 0; total <= 1000; total += 37 {
			wanted := min(total, maxArticles)
			want := (wanted + 19) / 20
			assert.Equal(t, want, PageCount(total, newsfeed.RunLimits{MaxArticles: maxArticles}),
				"max=%d total=%d", maxArticles, total)

			for limit := 1; limit <= 4; limit++ {
				got := PageCount(total, newsfeed.RunLimits{MaxArticles: maxArticles, MaxPages: intPtr(limit)})
				assert.LessOrEqual(t, got, limit)
				assert.Equal(t, min(want, limit), got)
			}
		}
	}
}

func TestNextPageURL(t *testing.T) {
	tests := []struct {
		current string
		page    int
		want    string
	}{
		{"https://udndata.com/s?q=a&page=1", 2, "https://udndata.com/s?q=a&page=2"},
		{"https://udndata.com/s?page=4&q=a", 5, "https://udndata.com/s?page=5&q=a"},
		{"https://udndata.com/s?q=a", 2, "https://udndata.com/s?q=a&page=2"},
		{"https://udndata.com/s", 3, "https://udndata.com/s?page=3"},
		{"https://udndata.com/s?subpage=1", 2, "https://udndata.com/s?subpage=1&page=2"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NextPageURL(tt.current, "page", tt.page), tt.current)
	}
	assert.Equal(t, "https://udndata.com/s?page=2", NextPageURL("https://udndata.com/s", "", 2))
}

func TestResolveURL(t *testing.T) {
	base := "https://udndata.com"
	assert.Equal(t, "https://udndata.com/ndapp/Story2?news_id=1", ResolveURL(base, "/ndapp/Story2?news_id=1"))
	assert.Equal(t, "https://other.example/a", ResolveURL(base, "https://other.example/a"))
	assert.Equal(t, "https://udndata.com/story?id=1", ResolveURL(base, "story?id=1"))
	assert.Equal(t, "https://udndata.com/a", ResolveURL(base, "  /a  "))
}

func TestExtractNewsID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://udndata.com/ndapp/Story2?news_id=12345&x=1", "12345"},
		{"https://udndata.com/ndapp/Story2?x=1&news_id=9", "9"},
		{"https://udn.com/news/story/7/8123", "8123"},
		{"https://udn.com/news/story/abc", newsfeed.UnknownID},
		{"", newsfeed.UnknownID},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractNewsID(tt.url), tt.url)
	}
}

func TestExtractDate(t *testing.T) {
	assert.Equal(t, "2024-03-05", ExtractDate("2024-03-05 聯合報 記者王小明"))
	assert.Equal(t, "2023-12-31", ExtractDate("聯合報 2023-12-31"))
	assert.Equal(t, newsfeed.UnknownDate, ExtractDate("聯合報 2024/03/05"))
	assert.Equal(t, newsfeed.UnknownDate, ExtractDate(""))
}

package main

import (
	"path/filepath"
	"time"

	"github.com/pevans/udnfetch/newsfeed"
)

// nowFunc is replaced in tests.
var nowFunc = time.Now

// defaultDateRange returns the first of January of now's year and now, both
// formatted as YYYY-MM-DD.
func defaultDateRange(now time.Time) (start, end string) {
	first := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	return first.Format(newsfeed.DateLayout), now.Format(newsfeed.DateLayout)
}

// csvPath resolves the CSV destination: the explicit output when given,
// otherwise the default name for keyword inside dir.
func csvPath(output, dir, keyword string) string {
	if output != "" {
		return output
	}
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, newsfeed.DefaultCSVName(keyword))
}

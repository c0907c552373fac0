package newsfeed

import "sort"

// DateCount is the number of records published on one date.
type DateCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// CountByDate groups records by their Date field, sorted by date. Records
// with UnknownDate are counted under that sentinel, which sorts last.
func CountByDate(records []ArticleRecord) []DateCount {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.Date]++
	}

	result := make([]DateCount, 0, len(counts))
	for date, n := range counts {
		result = append(result, DateCount{Date: date, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if (result[i].Date == UnknownDate) != (result[j].Date == UnknownDate) {
			return result[j].Date == UnknownDate
		}
		return result[i].Date < result[j].Date
	})
	return result
}

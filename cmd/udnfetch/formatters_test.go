package main

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pevans/udnfetch/newsfeed"
	"github.com/pevans/udnfetch/runs"
)

func sampleRecords(n int) []newsfeed.ArticleRecord {
	records := make([]newsfeed.ArticleRecord, n)
	for i := range records {
		records[i] = newsfeed.ArticleRecord{
			NewsID:  fmt.Sprintf("%d", 1000+i),
			Title:   fmt.Sprintf("標題 %d", i+1),
			Date:    "2024-01-02",
			Content: "內容",
		}
	}
	return records
}

// TestPrintPreview_LimitsRows verifies only the first n records are shown
func TestPrintPreview_LimitsRows(t *testing.T) {
	var buf bytes.Buffer
	printPreview(&buf, sampleRecords(12), 10)

	out := buf.String()
	assert.Contains(t, out, "Preview (10 of 12)")
	assert.Contains(t, out, "1000")
	assert.Contains(t, out, "1009")
	assert.NotContains(t, out, "1010")
	assert.NotContains(t, out, "1011")
}

// TestPrintPreview_Disabled verifies a zero preview prints nothing
func TestPrintPreview_Disabled(t *testing.T) {
	var buf bytes.Buffer
	printPreview(&buf, sampleRecords(3), 0)
	assert.Empty(t, buf.String())
}

// TestPrintDateCounts verifies bars scale to the largest count
func TestPrintDateCounts(t *testing.T) {
	var buf bytes.Buffer
	printDateCounts(&buf, []newsfeed.DateCount{
		{Date: "2024-01-02", Count: 4},
		{Date: "2024-01-03", Count: 1},
		{Date: newsfeed.UnknownDate, Count: 2},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Articles by date:", lines[0])
	assert.Equal(t, histogramWidth, strings.Count(lines[1], "█"))
	assert.Equal(t, histogramWidth/4, strings.Count(lines[2], "█"))
	assert.Equal(t, histogramWidth/2, strings.Count(lines[3], "█"))
	assert.True(t, strings.HasSuffix(lines[3], " 2"))
}

// TestPrintRunsTable verifies the empty message and run rows
func TestPrintRunsTable(t *testing.T) {
	var buf bytes.Buffer
	printRunsTable(&buf, nil)
	assert.Equal(t, "No runs archived.\n", buf.String())

	msg := "context canceled"
	id := uuid.New()
	buf.Reset()
	printRunsTable(&buf, []runs.Run{{
		RunID:       id,
		Keyword:     "颱風",
		StartDate:   "2024-01-01",
		EndDate:     "2024-01-31",
		RecordCount: 7,
		Error:       &msg,
		StartedAt:   time.Now(),
	}})

	out := buf.String()
	assert.Contains(t, out, id.String())
	assert.Contains(t, out, "颱風")
	assert.Contains(t, out, "2024-01-01 ~ 2024-01-31")
	assert.Contains(t, out, "partial")
}

// TestPrintRunDetail verifies the error line appears only for partial runs
func TestPrintRunDetail(t *testing.T) {
	pages := 2
	run := &runs.Run{
		RunID:       uuid.New(),
		Keyword:     "颱風",
		MaxArticles: 50,
		MaxPages:    &pages,
		StartedAt:   time.Now(),
		FinishedAt:  time.Now(),
	}

	var buf bytes.Buffer
	printRunDetail(&buf, run)
	assert.Contains(t, buf.String(), "✓ complete")
	assert.Contains(t, buf.String(), "Max Pages:       2")
	assert.NotContains(t, buf.String(), "Error:")

	msg := errors.New("crawl aborted unexpectedly").Error()
	run.Error = &msg
	run.MaxPages = nil
	buf.Reset()
	printRunDetail(&buf, run)
	assert.Contains(t, buf.String(), "Error:       crawl aborted unexpectedly")
	assert.Contains(t, buf.String(), "Max Pages:       none")
}

// TestDefaultDateRange verifies the range starts on the first of the year
func TestDefaultDateRange(t *testing.T) {
	start, end := defaultDateRange(time.Date(2025, time.March, 11, 15, 0, 0, 0, time.UTC))
	assert.Equal(t, "2025-01-01", start)
	assert.Equal(t, "2025-03-11", end)
}

// TestCSVPath verifies the explicit path wins over the default name
func TestCSVPath(t *testing.T) {
	assert.Equal(t, "out.csv", csvPath("out.csv", "/exports", "颱風"))
	assert.Equal(t, filepath.Join("/exports", "udn_颱風_新聞資料.csv"), csvPath("", "/exports", "颱風"))
	assert.Equal(t, "udn_颱風_新聞資料.csv", csvPath("", "", "颱風"))
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/pevans/udnfetch/discovery"
	"github.com/pevans/udnfetch/newsfeed"
	"github.com/pevans/udnfetch/progress"
	"github.com/pevans/udnfetch/runs"
)

const (
	previewTitleWidth   = 30
	previewContentWidth = 40
	histogramWidth      = 40
	timeLayout          = "2006-01-02 15:04:05"
)

const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// printRunSummary prints the counts of a finished crawl
func printRunSummary(w io.Writer, result *discovery.RunResult) {
	fmt.Fprintf(w, "Search:      %s (%s ~ %s)\n",
		result.Criteria.Keyword, result.Criteria.StartDate, result.Criteria.EndDate)
	fmt.Fprintf(w, "Results:     %d found, %d of %d pages visited\n",
		result.TotalResults, result.PagesVisited, result.Pages)
	fmt.Fprintf(w, "Articles:    %d links, %d records\n", len(result.Links), len(result.Records))
	fmt.Fprintf(w, "Duration:    %s\n", result.FinishedAt.Sub(result.StartedAt).Round(time.Second))
}

// printPreview prints the first n records as a table
func printPreview(w io.Writer, records []newsfeed.ArticleRecord, n int) {
	if n <= 0 {
		return
	}
	shown := records
	if len(shown) > n {
		shown = shown[:n]
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Preview (%d of %d)", len(shown), len(records))
	t.AppendHeader(table.Row{"#", "News ID", "Title", "Date", "Content"})
	for i, r := range shown {
		t.AppendRow(table.Row{
			i + 1,
			r.NewsID,
			progress.TruncateWidth(r.Title, previewTitleWidth),
			r.Date,
			progress.TruncateWidth(r.Content, previewContentWidth),
		})
	}
	t.Render()
}

// printDateCounts prints a bar per publication date
func printDateCounts(w io.Writer, counts []newsfeed.DateCount) {
	if len(counts) == 0 {
		return
	}

	maxCount, labelWidth := 0, 0
	for _, c := range counts {
		maxCount = max(maxCount, c.Count)
		labelWidth = max(labelWidth, len(c.Date))
	}

	fmt.Fprintln(w, "Articles by date:")
	for _, c := range counts {
		bar := max(1, c.Count*histogramWidth/maxCount)
		fmt.Fprintf(w, "  %-*s %s %d\n", labelWidth, c.Date, strings.Repeat("█", bar), c.Count)
	}
}

// printRunsTable prints archived runs in a table
func printRunsTable(w io.Writer, list []runs.Run) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No runs archived.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Keyword", "Range", "Records", "State", "Started"})
	for _, r := range list {
		t.AppendRow(table.Row{
			r.RunID.String(),
			progress.TruncateWidth(r.Keyword, 20),
			r.StartDate + " ~ " + r.EndDate,
			r.RecordCount,
			runStatus(&r),
			r.StartedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	t.Render()
}

// printRunDetail prints every archived field of a run
func printRunDetail(w io.Writer, run *runs.Run) {
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%s (%s ~ %s)\n", run.Keyword, run.StartDate, run.EndDate)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "ID:          %s\n", run.RunID)
	fmt.Fprintf(w, "Status:      %s\n", runStatus(run))
	if run.Error != nil {
		fmt.Fprintf(w, "Error:       %s\n", *run.Error)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Limits:")
	fmt.Fprintf(w, "  Max Articles:    %d\n", run.MaxArticles)
	if run.MaxPages != nil {
		fmt.Fprintf(w, "  Max Pages:       %d\n", *run.MaxPages)
	} else {
		fmt.Fprintln(w, "  Max Pages:       none")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Results:")
	fmt.Fprintf(w, "  Total Results:   %d\n", run.TotalResults)
	fmt.Fprintf(w, "  Pages:           %d visited of %d\n", run.PagesVisited, run.Pages)
	fmt.Fprintf(w, "  Links:           %d\n", run.LinkCount)
	fmt.Fprintf(w, "  Records:         %d\n", run.RecordCount)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Started:     %s\n", run.StartedAt.Local().Format(timeLayout))
	fmt.Fprintf(w, "Finished:    %s\n", run.FinishedAt.Local().Format(timeLayout))
}

func runStatus(run *runs.Run) string {
	if run.Partial() {
		return "✗ partial"
	}
	return "✓ complete"
}

// printJSON prints v as indented JSON
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

package progress

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

const (
	barWidth   = 24
	titleWidth = 30
)

// Console renders each event as a status line on w.
type Console struct {
	w       io.Writer
	tracker *Tracker
}

// NewConsole creates a console sink writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w, tracker: NewTracker()}
}

// Report updates the tracker and prints the current status.
func (c *Console) Report(e Event) {
	c.tracker.Report(e)
	fmt.Fprintln(c.w, c.Line())
}

// Line formats the current status, for example:
//
//	[#####-------------------]  21% Fetching article content | page 3/3 | article 4/20 | latest: 颱風...
func (c *Console) Line() string {
	t := c.tracker
	pct := t.Overall()
	filled := int(pct * barWidth)

	var b strings.Builder
	b.WriteString("[")
	b.WriteString(strings.Repeat("#", filled))
	b.WriteString(strings.Repeat("-", barWidth-filled))
	fmt.Fprintf(&b, "] %3.0f%% %s | page %d/%d | article %d/%d",
		pct*100, t.Stage, t.CurrentPage, t.TotalPages, t.CurrentArticle, t.TotalArticles)
	if t.LatestTitle != "" {
		fmt.Fprintf(&b, " | latest: %s", TruncateWidth(t.LatestTitle, titleWidth))
	}
	return b.String()
}

// TruncateWidth shortens s to at most width terminal cells, appending "..."
// when it was cut. Wide (CJK) runes count as two cells.
func TruncateWidth(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}

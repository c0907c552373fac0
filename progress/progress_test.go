package progress

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRecorder_Stages verifies stage extraction from mixed events
func TestRecorder_Stages(t *testing.T) {
	rec := &Recorder{}
	rec.Report(StageChanged{Label: StageOpening})
	rec.Report(PageProgress{Current: 1, Total: 2})
	rec.Report(StageChanged{Label: StageComplete})

	assert.Equal(t, []string{StageOpening, StageComplete}, rec.Stages())
	assert.Len(t, rec.Events, 3)
}

// TestMulti verifies fan-out and nil sinks are skipped
func TestMulti(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	sink := Multi(a, nil, b)
	sink.Report(ArticleProgress{Current: 1, Total: 1, Title: "t"})

	assert.Len(t, a.Events, 1)
	assert.Len(t, b.Events, 1)
}

// TestTracker_Overall verifies phase weighting
func TestTracker_Overall(t *testing.T) {
	tr := NewTracker()
	assert.InDelta(t, 0.1, tr.Overall(), 1e-9, "initial stage")

	tr.Report(PageProgress{Current: 1, Total: 2})
	assert.InDelta(t, 0.2, tr.Overall(), 1e-9, "page phase is 40% weighted")

	tr.Report(ArticleProgress{Current: 0, Total: 4})
	assert.InDelta(t, 0.2, tr.Overall(), 1e-9, "article 0 keeps page estimate")

	tr.Report(ArticleProgress{Current: 3, Total: 4, Title: "Headline"})
	assert.InDelta(t, 0.75, tr.Overall(), 1e-9)
	assert.Equal(t, "Headline", tr.LatestTitle)

	tr.Report(ArticleProgress{Current: 4, Total: 4})
	assert.Equal(t, "Headline", tr.LatestTitle, "empty title keeps the previous one")
}

// TestConsole_Line verifies rendering of the status line
func TestConsole_Line(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	c.Report(StageChanged{Label: StageArticles})
	c.Report(ArticleProgress{Current: 1, Total: 2, Title: "颱風來襲全台停班停課最新消息整理"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], StageArticles)
	assert.Contains(t, lines[1], "article 1/2")
	assert.Contains(t, lines[1], " 50% ")
	assert.Contains(t, lines[1], "latest: 颱風")
}

// TestTruncateWidth verifies CJK-aware truncation
func TestTruncateWidth(t *testing.T) {
	assert.Equal(t, "short", TruncateWidth("short", 30))
	assert.Equal(t, "a b", TruncateWidth("a \n b", 30), "whitespace is collapsed")

	long := strings.Repeat("新", 40)
	got := TruncateWidth(long, 30)
	assert.LessOrEqual(t, runewidth.StringWidth(got), 30)
	assert.True(t, strings.HasSuffix(got, "..."))
}

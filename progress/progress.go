// Package progress defines the notifications a crawl emits while it runs.
// Sinks are purely observational: they never influence control flow and
// must return quickly.
package progress

import "github.com/rs/zerolog"

// Event is one progress notification. It is one of StageChanged,
// PageProgress or ArticleProgress.
type Event interface {
	isEvent()
}

// StageChanged reports entry into a new crawl stage.
type StageChanged struct {
	Label string
}

// PageProgress reports the listing page being collected.
type PageProgress struct {
	Current int
	Total   int
}

// ArticleProgress reports the article being extracted. Title is empty until
// the article's heading has been read.
type ArticleProgress struct {
	Current int
	Total   int
	Title   string
}

func (StageChanged) isEvent()    {}
func (PageProgress) isEvent()    {}
func (ArticleProgress) isEvent() {}

// Stage labels reported by the crawl.
const (
	StageOpening    = "Opening news portal"
	StageLogin      = "Trying login"
	StageManual     = "Waiting for manual login"
	StageCriteria   = "Entering search criteria"
	StageSearch     = "Submitting search"
	StageAnalyze    = "Analyzing search results"
	StageLinks      = "Collecting article links"
	StageArticles   = "Fetching article content"
	StageAssembling = "Assembling results"
	StageComplete   = "Crawl complete"
)

// Sink receives progress events.
type Sink interface {
	Report(Event)
}

// Func adapts a function to a Sink.
type Func func(Event)

// Report calls f(e).
func (f Func) Report(e Event) { f(e) }

type nopSink struct{}

func (nopSink) Report(Event) {}

// Nop returns a Sink that discards events.
func Nop() Sink { return nopSink{} }

// Multi fans an event out to several sinks in order.
func Multi(sinks ...Sink) Sink {
	return Func(func(e Event) {
		for _, s := range sinks {
			if s != nil {
				s.Report(e)
			}
		}
	})
}

// Recorder keeps every event it receives.
type Recorder struct {
	Events []Event
}

// Report appends e.
func (r *Recorder) Report(e Event) {
	r.Events = append(r.Events, e)
}

// Stages returns the labels of recorded StageChanged events in order.
func (r *Recorder) Stages() []string {
	var labels []string
	for _, e := range r.Events {
		if s, ok := e.(StageChanged); ok {
			labels = append(labels, s.Label)
		}
	}
	return labels
}

// LogSink mirrors events to a logger at debug level.
type LogSink struct {
	Log zerolog.Logger
}

// Report logs e.
func (s LogSink) Report(e Event) {
	switch ev := e.(type) {
	case StageChanged:
		s.Log.Debug().Str("stage", ev.Label).Msg("Stage changed")
	case PageProgress:
		s.Log.Debug().Int("page", ev.Current).Int("pages", ev.Total).Msg("Listing page")
	case ArticleProgress:
		evt := s.Log.Debug().Int("article", ev.Current).Int("articles", ev.Total)
		if ev.Title != "" {
			evt = evt.Str("title", ev.Title)
		}
		evt.Msg("Article")
	}
}

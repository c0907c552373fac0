package progress

// Tracker folds events into a running snapshot of the crawl.
type Tracker struct {
	Stage          string
	CurrentPage    int
	TotalPages     int
	CurrentArticle int
	TotalArticles  int
	LatestTitle    string
}

// NewTracker returns a tracker in its initial state.
func NewTracker() *Tracker {
	return &Tracker{Stage: "Initializing", TotalPages: 1}
}

// Report updates the snapshot from e.
func (t *Tracker) Report(e Event) {
	switch ev := e.(type) {
	case StageChanged:
		t.Stage = ev.Label
	case PageProgress:
		t.CurrentPage = ev.Current
		t.TotalPages = ev.Total
	case ArticleProgress:
		t.CurrentArticle = ev.Current
		t.TotalArticles = ev.Total
		if ev.Title != "" {
			t.LatestTitle = ev.Title
		}
	}
}

// Overall estimates completion in [0, 1]. Listing pages account for the
// first 40%; once articles are being fetched the article ratio is used
// directly.
func (t *Tracker) Overall() float64 {
	switch {
	case t.TotalArticles > 0 && t.CurrentArticle > 0:
		return clamp(float64(t.CurrentArticle) / float64(t.TotalArticles))
	case t.TotalPages > 0 && t.CurrentPage > 0:
		return clamp(float64(t.CurrentPage) / float64(t.TotalPages) * 0.4)
	default:
		return 0.1
	}
}

func clamp(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

package session

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Memory is a Session over in-memory HTML. Pages are keyed by absolute URL.
// It records what the crawl did so tests can assert on it.
type Memory struct {
	// Routes maps a URL to the markup served for it.
	Routes map[string]string
	// Clicks maps a selector to the URL loaded when it is clicked.
	Clicks map[string]string
	// Failures maps a URL to the error returned when navigating to it.
	Failures map[string]error

	Visited []string
	Filled  map[string]string
	Clicked []string
	Sleeps  []time.Duration
	Prompts int
	Closed  bool

	current string
	doc     *goquery.Document
}

// NewMemory creates an empty in-memory session.
func NewMemory() *Memory {
	return &Memory{
		Routes:   make(map[string]string),
		Clicks:   make(map[string]string),
		Failures: make(map[string]error),
		Filled:   make(map[string]string),
	}
}

// MemoryOpener returns an Opener that always hands out m.
func MemoryOpener(m *Memory) Opener {
	return func(context.Context, bool) (Session, error) {
		return m, nil
	}
}

func (m *Memory) Navigate(ctx context.Context, rawURL string, _ time.Duration) error {
	if err := m.check(ctx); err != nil {
		return err
	}
	m.Visited = append(m.Visited, rawURL)
	if err, ok := m.Failures[rawURL]; ok {
		return fmt.Errorf("failed to navigate to %s: %w", rawURL, err)
	}
	html, ok := m.Routes[rawURL]
	if !ok {
		return fmt.Errorf("failed to navigate to %s: no route", rawURL)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", rawURL, err)
	}
	m.current = rawURL
	m.doc = doc
	return nil
}

func (m *Memory) URL(ctx context.Context) (string, error) {
	if err := m.check(ctx); err != nil {
		return "", err
	}
	if m.doc == nil {
		return "", ErrNoPage
	}
	return m.current, nil
}

func (m *Memory) Content(ctx context.Context) (string, error) {
	if err := m.check(ctx); err != nil {
		return "", err
	}
	if m.doc == nil {
		return "", ErrNoPage
	}
	return m.doc.Html()
}

func (m *Memory) Query(ctx context.Context, sel string) (Element, error) {
	els, err := m.QueryAll(ctx, sel)
	if err != nil || len(els) == 0 {
		return nil, err
	}
	return els[0], nil
}

func (m *Memory) QueryAll(ctx context.Context, sel string) ([]Element, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	if m.doc == nil {
		return nil, ErrNoPage
	}
	return m.wrap(m.doc.Find(sel)), nil
}

func (m *Memory) Fill(ctx context.Context, sel, text string) error {
	if err := m.require(ctx, sel); err != nil {
		return err
	}
	m.Filled[sel] = text
	return nil
}

func (m *Memory) Click(ctx context.Context, sel string) error {
	if err := m.require(ctx, sel); err != nil {
		return err
	}
	m.Clicked = append(m.Clicked, sel)
	if target, ok := m.Clicks[sel]; ok {
		return m.Navigate(ctx, target, 0)
	}
	return nil
}

// Sleep records d without waiting.
func (m *Memory) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.Sleeps = append(m.Sleeps, d)
	return nil
}

func (m *Memory) WaitForInput(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.Prompts++
	return nil
}

func (m *Memory) Close() error {
	m.Closed = true
	return nil
}

func (m *Memory) check(ctx context.Context) error {
	if m.Closed {
		return ErrClosed
	}
	return ctx.Err()
}

func (m *Memory) require(ctx context.Context, sel string) error {
	el, err := m.Query(ctx, sel)
	if err != nil {
		return err
	}
	if el == nil {
		return fmt.Errorf("%w: %q", ErrNoMatch, sel)
	}
	return nil
}

func (m *Memory) wrap(s *goquery.Selection) []Element {
	els := make([]Element, 0, s.Length())
	s.Each(func(_ int, item *goquery.Selection) {
		els = append(els, &memoryElement{m: m, sel: item})
	})
	return els
}

type memoryElement struct {
	m   *Memory
	sel *goquery.Selection
}

func (e *memoryElement) Text(ctx context.Context) (string, error) {
	if err := e.m.check(ctx); err != nil {
		return "", err
	}
	return e.sel.Text(), nil
}

func (e *memoryElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := e.m.check(ctx); err != nil {
		return "", false, err
	}
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

func (e *memoryElement) QueryAll(ctx context.Context, sel string) ([]Element, error) {
	if err := e.m.check(ctx); err != nil {
		return nil, err
	}
	return e.m.wrap(e.sel.Find(sel)), nil
}

// Click follows the element's href when a route exists for it.
func (e *memoryElement) Click(ctx context.Context) error {
	if err := e.m.check(ctx); err != nil {
		return err
	}
	e.m.Clicked = append(e.m.Clicked, goquery.NodeName(e.sel))
	href, ok := e.sel.Attr("href")
	if !ok {
		return nil
	}
	target := href
	if base, err := url.Parse(e.m.current); err == nil {
		if ref, err := base.Parse(href); err == nil {
			target = ref.String()
		}
	}
	if _, ok := e.m.Routes[target]; ok {
		return e.m.Navigate(ctx, target, 0)
	}
	return nil
}

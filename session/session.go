// Package session abstracts the browser tab a crawl drives. The crawl only
// needs a handful of page capabilities, so the portal can be driven by a
// real Chrome instance or replayed from stored HTML.
package session

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoMatch is returned by Fill and Click when the selector matches
	// nothing on the current page.
	ErrNoMatch = errors.New("selector matched no element")
	// ErrNoPage is returned when no page has been loaded yet.
	ErrNoPage = errors.New("no page loaded")
	// ErrClosed is returned by calls made after Close.
	ErrClosed = errors.New("session closed")
)

// Session is one browser tab. Calls are blocking and honour ctx.
type Session interface {
	// Navigate loads url and waits for it, failing after timeout. A zero
	// timeout means no limit beyond ctx.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// URL returns the address of the current page.
	URL(ctx context.Context) (string, error)
	// Content returns the serialized markup of the current page.
	Content(ctx context.Context) (string, error)
	// Query returns the first element matching sel, or nil if none does.
	Query(ctx context.Context, sel string) (Element, error)
	// QueryAll returns every element matching sel in document order.
	QueryAll(ctx context.Context, sel string) ([]Element, error)
	// Fill sets the value of the input matching sel.
	Fill(ctx context.Context, sel, text string) error
	// Click clicks the first element matching sel.
	Click(ctx context.Context, sel string) error
	// Sleep waits d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
	// WaitForInput blocks until the operator confirms a manual step.
	WaitForInput(ctx context.Context) error
	// Close releases the tab and its browser. It is safe to call twice.
	Close() error
}

// Element is a node on the current page.
type Element interface {
	Text(ctx context.Context) (string, error)
	// Attribute returns the named attribute and whether it is present.
	Attribute(ctx context.Context, name string) (string, bool, error)
	QueryAll(ctx context.Context, sel string) ([]Element, error)
	Click(ctx context.Context) error
}

// Opener acquires a fresh session for one run.
type Opener func(ctx context.Context, headless bool) (Session, error)

// sleep waits d, returning early with ctx.Err() when ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

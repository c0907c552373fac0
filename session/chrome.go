package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// ChromeOptions configures the browser launched for a session.
type ChromeOptions struct {
	Headless  bool
	ExecPath  string
	UserAgent string
	// Input and Prompt back WaitForInput. They default to stdin and
	// stdout.
	Input  io.Reader
	Prompt io.Writer
	Log    zerolog.Logger
}

// Chrome is a Session backed by a chromedp-controlled browser tab.
type Chrome struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	input       io.Reader
	prompt      io.Writer
	log         zerolog.Logger
	closeOnce   sync.Once

	// lines receives one value per line read from input. It is closed,
	// with inputErr set, once input is exhausted.
	lines    chan struct{}
	readOnce sync.Once
	inputErr error
}

// ChromeOpener returns an Opener that launches Chrome with opts. The headless
// argument of each call overrides opts.Headless.
func ChromeOpener(opts ChromeOptions) Opener {
	return func(ctx context.Context, headless bool) (Session, error) {
		o := opts
		o.Headless = headless
		return OpenChrome(ctx, o)
	}
}

// OpenChrome launches a browser and opens one tab. The browser outlives ctx;
// it is released by Close.
func OpenChrome(ctx context.Context, opts ChromeOptions) (*Chrome, error) {
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts, chromedp.Flag("headless", opts.Headless))
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...interface{}) {
		opts.Log.Debug().Msgf(format, args...)
	}))

	c := &Chrome{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		input:       opts.Input,
		prompt:      opts.Prompt,
		log:         opts.Log,
		lines:       make(chan struct{}),
	}
	if c.input == nil {
		c.input = os.Stdin
	}
	if c.prompt == nil {
		c.prompt = os.Stdout
	}

	// The browser process and its connection are bound to the context of
	// the first Run, so it must be the tab context itself. Cancelling ctx
	// during the launch tears the tab down.
	stop := context.AfterFunc(ctx, cancelTab)
	err := chromedp.Run(tabCtx)
	if !stop() && err == nil {
		err = ctx.Err()
	}
	if err != nil {
		c.Close()
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return c, nil
}

// run executes actions on the tab. The call is abandoned when ctx is done or
// the timeout (if positive) elapses; the tab itself stays open.
func (c *Chrome) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if c.ctx.Err() != nil {
		return ErrClosed
	}
	runCtx, cancel := context.WithCancel(c.ctx)
	defer cancel()
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, timeout)
		defer cancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (c *Chrome) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := c.run(ctx, timeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (c *Chrome) URL(ctx context.Context) (string, error) {
	var loc string
	if err := c.run(ctx, 0, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return loc, nil
}

func (c *Chrome) Content(ctx context.Context) (string, error) {
	var html string
	if err := c.run(ctx, 0, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}
	return html, nil
}

func (c *Chrome) Query(ctx context.Context, sel string) (Element, error) {
	els, err := c.QueryAll(ctx, sel)
	if err != nil || len(els) == 0 {
		return nil, err
	}
	return els[0], nil
}

func (c *Chrome) QueryAll(ctx context.Context, sel string) ([]Element, error) {
	var nodes []*cdp.Node
	err := c.run(ctx, 0, chromedp.Nodes(sel, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	if err != nil {
		return nil, fmt.Errorf("failed to query %q: %w", sel, err)
	}
	return c.wrap(nodes), nil
}

func (c *Chrome) Fill(ctx context.Context, sel, text string) error {
	if err := c.requirePresent(ctx, sel); err != nil {
		return err
	}
	if err := c.run(ctx, 0, chromedp.SetValue(sel, text, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to fill %q: %w", sel, err)
	}
	return nil
}

func (c *Chrome) Click(ctx context.Context, sel string) error {
	if err := c.requirePresent(ctx, sel); err != nil {
		return err
	}
	if err := c.run(ctx, 0, chromedp.Click(sel, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to click %q: %w", sel, err)
	}
	return nil
}

// requirePresent fails fast instead of letting chromedp wait forever for a
// selector that is not on the page.
func (c *Chrome) requirePresent(ctx context.Context, sel string) error {
	el, err := c.Query(ctx, sel)
	if err != nil {
		return err
	}
	if el == nil {
		return fmt.Errorf("%w: %q", ErrNoMatch, sel)
	}
	return nil
}

func (c *Chrome) Sleep(ctx context.Context, d time.Duration) error {
	return sleep(ctx, d)
}

// WaitForInput prompts on the terminal and waits for Enter. A single reader
// goroutine serves every call, so a wait abandoned on cancellation does not
// consume the line meant for a later one. Exhausted input counts as Enter.
func (c *Chrome) WaitForInput(ctx context.Context) error {
	c.readOnce.Do(func() { go c.readLines() })
	fmt.Fprint(c.prompt, "Complete the login in the browser window, then press Enter to continue...")

	select {
	case <-ctx.Done():
		return ctx.Err()
	case _, ok := <-c.lines:
		if !ok {
			return c.inputErr
		}
		return nil
	}
}

func (c *Chrome) readLines() {
	r := bufio.NewReader(c.input)
	for {
		_, err := r.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				c.inputErr = err
			}
			close(c.lines)
			return
		}
		c.lines <- struct{}{}
	}
}

func (c *Chrome) Close() error {
	c.closeOnce.Do(func() {
		c.cancelTab()
		c.cancelAlloc()
		c.log.Debug().Msg("Browser closed")
	})
	return nil
}

func (c *Chrome) wrap(nodes []*cdp.Node) []Element {
	els := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		els = append(els, &chromeElement{c: c, node: n})
	}
	return els
}

type chromeElement struct {
	c    *Chrome
	node *cdp.Node
}

func (e *chromeElement) ids() []cdp.NodeID {
	return []cdp.NodeID{e.node.NodeID}
}

func (e *chromeElement) Text(ctx context.Context) (string, error) {
	var text string
	if err := e.c.run(ctx, 0, chromedp.Text(e.ids(), &text, chromedp.ByNodeID)); err != nil {
		return "", fmt.Errorf("failed to read text: %w", err)
	}
	return text, nil
}

func (e *chromeElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	if err := e.c.run(ctx, 0, chromedp.AttributeValue(e.ids(), name, &value, &ok, chromedp.ByNodeID)); err != nil {
		return "", false, fmt.Errorf("failed to read attribute %q: %w", name, err)
	}
	return value, ok, nil
}

func (e *chromeElement) QueryAll(ctx context.Context, sel string) ([]Element, error) {
	var nodes []*cdp.Node
	err := e.c.run(ctx, 0, chromedp.Nodes(sel, &nodes, chromedp.ByQueryAll, chromedp.FromNode(e.node), chromedp.AtLeast(0)))
	if err != nil {
		return nil, fmt.Errorf("failed to query %q: %w", sel, err)
	}
	return e.c.wrap(nodes), nil
}

func (e *chromeElement) Click(ctx context.Context) error {
	if err := e.c.run(ctx, 0, chromedp.Click(e.ids(), chromedp.ByNodeID)); err != nil {
		return fmt.Errorf("failed to click element: %w", err)
	}
	return nil
}

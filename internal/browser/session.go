// Package browser drives a shared headless Chrome page through
// chromedp. One browser process serves the whole pipeline; callers
// acquire exclusive page access for the duration of one URL visit.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"github.com/akraskov/veridict/internal/model"
)

// Session owns one headless browser. The browser process starts lazily
// on first Acquire so a run that never needs rendering never pays the
// startup cost.
type Session struct {
	cfg model.BrowserConfig
	sem chan struct{}

	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewSession creates a session. The browser is not started yet.
func NewSession(cfg model.BrowserConfig) *Session {
	if cfg.NavigationTimeout == 0 {
		cfg.NavigationTimeout = 30 * time.Second
	}

	sem := make(chan struct{}, 1)
	sem <- struct{}{}

	return &Session{
		cfg: cfg,
		sem: sem,
	}
}

// Acquire blocks until the page is free, starts the browser if needed,
// and returns the page with a release function. The caller must call
// release exactly once.
func (s *Session) Acquire(ctx context.Context) (*Page, func(), error) {
	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case <-s.sem:
	}

	browserCtx, err := s.ensureStarted()
	if err != nil {
		s.sem <- struct{}{}
		return nil, nil, err
	}

	page := &Page{
		ctx:     browserCtx,
		timeout: s.cfg.NavigationTimeout,
	}

	var once sync.Once
	release := func() {
		once.Do(func() { s.sem <- struct{}{} })
	}
	return page, release, nil
}

func (s *Session) ensureStarted() (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browserCtx != nil {
		return s.browserCtx, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
	)
	if s.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(s.cfg.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// An empty Run forces the browser process to start now.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	log.Debug().Bool("headless", s.cfg.Headless).Msg("browser started")

	s.allocCancel = allocCancel
	s.browserCtx = browserCtx
	s.browserCancel = browserCancel
	return browserCtx, nil
}

// Close shuts down the browser process. The session cannot be reused.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browserCancel != nil {
		s.browserCancel()
		s.browserCancel = nil
	}
	if s.allocCancel != nil {
		s.allocCancel()
		s.allocCancel = nil
	}
	s.browserCtx = nil
}

// Page is an exclusive handle on the browser tab.
type Page struct {
	ctx     context.Context
	timeout time.Duration
}

// run executes chromedp actions under the navigation timeout while
// still honoring the caller's context.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

// Navigate loads the URL and waits for the body plus a short settle
// delay so late-rendering content has a chance to appear.
func (p *Page) Navigate(ctx context.Context, url string) error {
	err := p.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(time.Second),
	)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// Title returns the current document title.
func (p *Page) Title(ctx context.Context) (string, error) {
	var title string
	if err := p.run(ctx, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

// Location returns the current URL after any redirects.
func (p *Page) Location(ctx context.Context) (string, error) {
	var location string
	if err := p.run(ctx, chromedp.Location(&location)); err != nil {
		return "", err
	}
	return location, nil
}

// Paragraphs collects whitespace-normalized text fragments from the
// given selectors, keeping at most perSelector elements per selector
// and dropping fragments shorter than minChars.
func (p *Page) Paragraphs(ctx context.Context, selectors []string, minChars, perSelector int) ([]string, error) {
	selectorJSON, err := json.Marshal(selectors)
	if err != nil {
		return nil, fmt.Errorf("marshal selectors: %w", err)
	}

	js := fmt.Sprintf(paragraphsJS, selectorJSON, minChars, perSelector)

	var fragments []string
	if err := p.run(ctx, chromedp.Evaluate(js, &fragments)); err != nil {
		return nil, fmt.Errorf("collect paragraphs: %w", err)
	}
	return fragments, nil
}

// BodyText returns the rendered text of the whole page body.
func (p *Page) BodyText(ctx context.Context) (string, error) {
	var text string
	err := p.run(ctx, chromedp.Evaluate("document.body ? document.body.innerText : ''", &text))
	if err != nil {
		return "", fmt.Errorf("read body text: %w", err)
	}
	return text, nil
}

const paragraphsJS = `(() => {
	const selectors = %s;
	const minChars = %d;
	const perSelector = %d;
	const seen = new Set();
	const out = [];
	for (const sel of selectors) {
		let elems;
		try { elems = document.querySelectorAll(sel); } catch (e) { continue; }
		let taken = 0;
		for (const el of elems) {
			if (taken >= perSelector) break;
			taken++;
			const text = (el.innerText || '').replace(/\s+/g, ' ').trim();
			if (text.length < minChars || seen.has(text)) continue;
			seen.add(text);
			out.push(text);
		}
	}
	return out;
})()`

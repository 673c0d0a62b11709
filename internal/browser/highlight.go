package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ErrPassageNotFound means the passage text could not be located in
// the rendered page, so nothing was highlighted.
var ErrPassageNotFound = errors.New("passage not found on page")

// LocateAndHighlight finds the passage in the page text, wraps it in a
// highlighted span, and scrolls it into view. When the exact text is
// split across markup it falls back to the first text node containing
// any single significant word of the passage.
func (p *Page) LocateAndHighlight(ctx context.Context, passage string) error {
	passageJSON, err := json.Marshal(passage)
	if err != nil {
		return fmt.Errorf("marshal passage: %w", err)
	}
	wordsJSON, err := json.Marshal(fallbackWords(passage))
	if err != nil {
		return fmt.Errorf("marshal fallback words: %w", err)
	}

	js := fmt.Sprintf(highlightJS, passageJSON, wordsJSON)

	var found bool
	if err := p.run(ctx, chromedp.Evaluate(js, &found)); err != nil {
		return fmt.Errorf("highlight passage: %w", err)
	}
	if !found {
		return ErrPassageNotFound
	}
	return nil
}

// Screenshot captures the current viewport as PNG bytes.
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return buf, nil
}

// fallbackWords picks the passage's first six words longer than three
// characters, tried one at a time when the exact passage is not found
// in any single text node.
func fallbackWords(passage string) []string {
	words := []string{}
	for _, w := range strings.Fields(passage) {
		if len(w) <= 3 {
			continue
		}
		words = append(words, w)
		if len(words) == 6 {
			break
		}
	}
	return words
}

// highlightJS walks text nodes for an exact match first, then settles
// for the first node containing any one of the fallback words.
const highlightJS = `(() => {
	const passage = %s;
	const words = %s;

	const findNode = (match) => {
		const walker = document.createTreeWalker(document.body, NodeFilter.SHOW_TEXT);
		let node;
		while ((node = walker.nextNode())) {
			if (match(node.textContent)) return node;
		}
		return null;
	};

	let target = findNode((text) => text.includes(passage));
	for (const w of words) {
		if (target) break;
		target = findNode((text) => text.includes(w));
	}
	if (!target || !target.parentElement) return false;

	const span = document.createElement('span');
	span.style.backgroundColor = '#fff59d';
	span.style.outline = '2px solid #ef5350';
	target.parentElement.insertBefore(span, target);
	span.appendChild(target);
	span.scrollIntoView({block: 'center'});
	return true;
})()`

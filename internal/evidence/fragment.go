// Package evidence builds the artifacts that let a human check a
// verdict: text-fragment deep links that scroll the browser to the
// exact passage, and screenshots with the passage highlighted.
package evidence

import (
	"crypto/md5"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// fragmentWords is how many leading words of the passage go into the
// text fragment. Enough to anchor uniquely, short enough to match.
const fragmentWords = 10

var punctuation = regexp.MustCompile(`[^\w\s]`)

// TextFragmentURL appends a #:~:text= fragment for the passage so
// supporting browsers scroll to and highlight it on open. Any existing
// fragment on the URL is replaced.
func TextFragmentURL(pageURL, passage string) string {
	words := strings.Fields(punctuation.ReplaceAllString(passage, ""))
	if len(words) == 0 {
		return pageURL
	}
	if len(words) > fragmentWords {
		words = words[:fragmentWords]
	}

	base := pageURL
	if i := strings.Index(base, "#"); i >= 0 {
		base = base[:i]
	}

	return base + "#:~:text=" + strings.Join(words, "%20")
}

// ScreenshotName builds a collision-resistant file name from the
// capture time, the source's registered domain, and a short hash of
// the claim.
func ScreenshotName(claim, pageURL string, now time.Time) string {
	domain := RegisteredDomain(pageURL)
	if domain == "" {
		domain = "site"
	}

	hash := fmt.Sprintf("%x", md5.Sum([]byte(claim)))[:8]

	return fmt.Sprintf("%s_%s_%s.png", now.Format("20060102_150405"), domain, hash)
}

// secondLevelSuffixes are common second-level registries under
// two-letter country TLDs (example.co.uk registers "example.co.uk").
var secondLevelSuffixes = map[string]bool{
	"co": true, "com": true, "org": true, "net": true,
	"ac": true, "gov": true, "edu": true,
}

// RegisteredDomain extracts the registrable domain from a URL with a
// small heuristic instead of the full public suffix list: the last two
// labels, or three when the TLD is a two-letter country code with a
// known second-level registry. Returns "" for unparseable URLs.
func RegisteredDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return ""
	}

	host := strings.ToLower(parsed.Hostname())
	host = strings.TrimPrefix(host, "www.")

	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return host
	}

	tld := labels[len(labels)-1]
	second := labels[len(labels)-2]
	if len(labels) >= 3 && len(tld) == 2 && secondLevelSuffixes[second] {
		return strings.Join(labels[len(labels)-3:], ".")
	}
	return strings.Join(labels[len(labels)-2:], ".")
}

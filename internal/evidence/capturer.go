package evidence

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/akraskov/veridict/internal/model"
)

// Highlighter is the subset of browser page behavior the capturer
// needs. Implemented by browser.Page.
type Highlighter interface {
	LocateAndHighlight(ctx context.Context, passage string) error
	Screenshot(ctx context.Context) ([]byte, error)
}

// Capturer takes highlighted screenshots and persists them to disk.
// Capture failures never fail a verification; they just leave the
// source without a screenshot.
type Capturer struct {
	dir     string
	enabled bool
	now     func() time.Time
}

// NewCapturer creates a capturer per the evidence configuration
func NewCapturer(cfg model.EvidenceConfig) *Capturer {
	return &Capturer{
		dir:     cfg.ScreenshotDir,
		enabled: cfg.EnableScreenshots,
		now:     time.Now,
	}
}

// Capture highlights the passage on the page, screenshots it, writes
// the PNG under the screenshot directory, and returns the image as
// base64. Returns "" when capture is disabled or anything fails.
func (c *Capturer) Capture(ctx context.Context, page Highlighter, claim, pageURL, passage string) string {
	if !c.enabled || page == nil {
		return ""
	}

	// Best effort: a passage that cannot be located still yields a
	// screenshot of the page itself.
	if err := page.LocateAndHighlight(ctx, passage); err != nil {
		log.Debug().Err(err).Str("url", pageURL).Msg("passage highlight failed")
	}

	png, err := page.Screenshot(ctx)
	if err != nil {
		log.Warn().Err(err).Str("url", pageURL).Msg("screenshot failed")
		return ""
	}

	c.persist(claim, pageURL, png)

	return base64.StdEncoding.EncodeToString(png)
}

func (c *Capturer) persist(claim, pageURL string, png []byte) {
	if c.dir == "" {
		return
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		log.Warn().Err(err).Str("dir", c.dir).Msg("create screenshot dir failed")
		return
	}

	path := filepath.Join(c.dir, ScreenshotName(claim, pageURL, c.now()))
	if err := os.WriteFile(path, png, 0o644); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("write screenshot failed")
		return
	}

	log.Debug().Str("path", path).Msg("screenshot saved")
}

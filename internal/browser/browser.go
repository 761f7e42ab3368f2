// Package browser drives a headless Chromium session via Playwright. The
// listing pages are client-rendered, so a plain HTTP fetch returns an empty
// shell; we need a real browser to get the review DOM.
package browser

import (
	"context"
	"fmt"
	"log"

	pw "github.com/playwright-community/playwright-go"

	"github.com/tomatocup1/reviewsync/internal/config"
)

// Browser wraps one launched Chromium instance. Pages are opened per
// operation and closed when it finishes.
type Browser struct {
	runner  *pw.Playwright
	browser pw.Browser
	timeout float64
}

// Launch starts Playwright and a Chromium instance. Callers must Close.
func Launch(cfg config.Browser) (*Browser, error) {
	runner, err := pw.Run()
	if err != nil {
		return nil, fmt.Errorf("starting playwright: %w", err)
	}

	chromium, err := runner.Chromium.Launch(pw.BrowserTypeLaunchOptions{
		Headless: pw.Bool(cfg.Headless),
	})
	if err != nil {
		runner.Stop()
		return nil, fmt.Errorf("launching chromium: %w", err)
	}

	timeout := float64(cfg.TimeoutMS)
	if timeout <= 0 {
		timeout = 30000
	}

	return &Browser{runner: runner, browser: chromium, timeout: timeout}, nil
}

// Close shuts down the browser and the Playwright driver.
func (b *Browser) Close() error {
	if err := b.browser.Close(); err != nil {
		return fmt.Errorf("closing browser: %w", err)
	}
	return b.runner.Stop()
}

// Capture navigates to url and returns the rendered HTML. When
// waitSelector is non-empty, capture waits for it to appear so the review
// list has actually rendered before the snapshot.
func (b *Browser) Capture(ctx context.Context, url, waitSelector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	page, err := b.browser.NewPage()
	if err != nil {
		return "", fmt.Errorf("creating page: %w", err)
	}
	defer page.Close()

	if _, err := page.Goto(url, pw.PageGotoOptions{
		WaitUntil: pw.WaitUntilStateNetworkidle,
		Timeout:   pw.Float(b.timeout),
	}); err != nil {
		return "", fmt.Errorf("navigating to %s: %w", url, err)
	}

	if waitSelector != "" {
		if _, err := page.WaitForSelector(waitSelector, pw.PageWaitForSelectorOptions{
			Timeout: pw.Float(b.timeout),
		}); err != nil {
			// Empty listings never render the selector; return what we have.
			log.Printf("selector %q did not appear on %s", waitSelector, url)
		}
	}

	html, err := page.Content()
	if err != nil {
		return "", fmt.Errorf("reading page content: %w", err)
	}
	return html, nil
}

// PostRequest targets one review on a rendered listing page. ItemIndex is
// the document-order position of the matched review; the reply box and
// submit button are located inside that element only.
type PostRequest struct {
	URL          string
	ItemSelector string
	ItemIndex    int
	ReplyBox     string
	ReplySubmit  string
	Body         string
}

// PostReply navigates to the listing page, scopes to the review at
// ItemIndex, fills the reply box and submits.
func (b *Browser) PostReply(ctx context.Context, req PostRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	page, err := b.browser.NewPage()
	if err != nil {
		return fmt.Errorf("creating page: %w", err)
	}
	defer page.Close()

	if _, err := page.Goto(req.URL, pw.PageGotoOptions{
		WaitUntil: pw.WaitUntilStateNetworkidle,
		Timeout:   pw.Float(b.timeout),
	}); err != nil {
		return fmt.Errorf("navigating to %s: %w", req.URL, err)
	}

	if _, err := page.WaitForSelector(req.ItemSelector, pw.PageWaitForSelectorOptions{
		Timeout: pw.Float(b.timeout),
	}); err != nil {
		return fmt.Errorf("review list did not render: %w", err)
	}

	item := page.Locator(req.ItemSelector).Nth(req.ItemIndex)

	box := item.Locator(req.ReplyBox)
	if err := box.Fill(req.Body, pw.LocatorFillOptions{Timeout: pw.Float(b.timeout)}); err != nil {
		return fmt.Errorf("filling reply box: %w", err)
	}

	if err := item.Locator(req.ReplySubmit).Click(pw.LocatorClickOptions{
		Timeout: pw.Float(b.timeout),
	}); err != nil {
		return fmt.Errorf("submitting reply: %w", err)
	}

	return nil
}

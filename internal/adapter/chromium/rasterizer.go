// Package chromium prints statement markup to PDF in a headless Chrome.
package chromium

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/neomorfeo/reportcycle/internal/domain"
)

// A4 paper size in inches.
const (
	a4Width  = 8.27
	a4Height = 11.69
)

// settledScript is true once the document and all of its images are loaded.
const settledScript = `document.readyState === "complete" &&
	Array.from(document.images).every(img => img.complete)`

// Compile-time check: Rasterizer implements domain.Rasterizer.
var _ domain.Rasterizer = (*Rasterizer)(nil)

// Options configure the browser process.
type Options struct {
	// ExecPath overrides browser discovery.
	ExecPath string
	// NoSandbox is required when running as root inside containers.
	NoSandbox bool
}

// Rasterizer owns one browser process and opens a tab per document.
type Rasterizer struct {
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
}

// New starts a headless browser. Close must be called to stop it.
func New(opts Options) (*Rasterizer, error) {
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.NoSandbox {
		allocOpts = append(allocOpts, chromedp.NoSandbox)
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// An empty Run launches the browser.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, &domain.ConfigurationError{Field: "chromium.exec_path", Reason: fmt.Sprintf("starting browser: %v", err)}
	}

	return &Rasterizer{
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
	}, nil
}

// Close stops the browser.
func (r *Rasterizer) Close() {
	r.cancelBrowser()
	r.cancelAlloc()
}

// Rasterize loads markup into a fresh tab, waits until it is settled and
// prints it as A4 with background graphics.
func (r *Rasterizer) Rasterize(ctx context.Context, markup []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tabCtx, cancel := chromedp.NewContext(r.browserCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var settled bool
	var pdf []byte
	err := chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return fmt.Errorf("reading frame tree: %w", err)
			}
			return page.SetDocumentContent(tree.Frame.ID, string(markup)).Do(ctx)
		}),
		chromedp.Poll(settledScript, &settled),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(a4Width).
				WithPaperHeight(a4Height).
				WithPreferCSSPageSize(false).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("printing pdf: %w", err)
	}

	return pdf, nil
}

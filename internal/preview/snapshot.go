// Package preview captures the embedded book viewer in headless Chrome.
package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
)

const (
	defaultTimeout  = 60 * time.Second
	defaultSettle   = 2 * time.Second
	defaultWidth    = 1024
	defaultHeight   = 1366
	jpegQuality     = 90
	losslessQuality = 100
)

var (
	chromedpExecAllocator = chromedp.NewExecAllocator
	chromedpContext       = chromedp.NewContext
	chromedpRunner        = chromedp.Run
	fullScreenshot        = func(res *[]byte, quality int) chromedp.Action {
		return chromedp.FullScreenshot(res, quality)
	}
)

// SnapshotOptions configures a viewer screenshot.
type SnapshotOptions struct {
	URL        string
	OutputPath string
	Width      int
	Height     int
	Headless   bool
	Timeout    time.Duration
	// Settle is how long to wait after navigation for the viewer to render.
	Settle time.Duration
}

// Snapshot loads opts.URL and writes a full-page screenshot to
// opts.OutputPath. A .png path is saved lossless, anything else as JPEG.
func Snapshot(parentCtx context.Context, opts SnapshotOptions) error {
	if opts.URL == "" {
		return errors.New("snapshot requires a URL")
	}
	if opts.OutputPath == "" {
		return errors.New("snapshot requires an output path")
	}
	applyDefaults(&opts)

	ctx, cancel := context.WithTimeout(parentCtx, opts.Timeout)
	defer cancel()

	allocCtx, cancelAllocator := chromedpExecAllocator(ctx, buildExecAllocatorOptions(opts)...)
	defer cancelAllocator()

	browserCtx, cancelBrowser := chromedpContext(allocCtx)
	defer cancelBrowser()

	slog.Info("Capturing preview", "url", opts.URL, "output", opts.OutputPath, "headless", opts.Headless)

	var buf []byte
	err := chromedpRunner(browserCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return emulation.SetDeviceMetricsOverride(int64(opts.Width), int64(opts.Height), 1, false).Do(ctx)
		}),
		chromedp.Navigate(opts.URL),
		chromedp.Sleep(opts.Settle),
		fullScreenshot(&buf, screenshotQuality(opts.OutputPath)),
	)
	if err != nil {
		return fmt.Errorf("failed to capture preview: %w", err)
	}
	if len(buf) == 0 {
		return errors.New("browser returned an empty screenshot")
	}

	if dir := filepath.Dir(opts.OutputPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(opts.OutputPath, buf, 0o644); err != nil {
		return fmt.Errorf("failed to write screenshot: %w", err)
	}

	slog.Info("Preview saved", "path", opts.OutputPath, "bytes", len(buf))
	return nil
}

func applyDefaults(opts *SnapshotOptions) {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Settle <= 0 {
		opts.Settle = defaultSettle
	}
	if opts.Width <= 0 {
		opts.Width = defaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = defaultHeight
	}
}

func screenshotQuality(path string) int {
	if strings.EqualFold(filepath.Ext(path), ".png") {
		return losslessQuality
	}
	return jpegQuality
}

func buildExecAllocatorOptions(opts SnapshotOptions) []chromedp.ExecAllocatorOption {
	return []chromedp.ExecAllocatorOption{
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoFirstRun,
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.WindowSize(opts.Width, opts.Height),
	}
}

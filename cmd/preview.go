package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/lepinkainen/readtube/internal/catalog"
	"github.com/lepinkainen/readtube/internal/preview"
)

var takeSnapshot = preview.Snapshot

// PreviewCmd represents the preview command
type PreviewCmd struct {
	ID       string        `arg:"" help:"Catalog volume ID"`
	Snapshot string        `help:"Save a screenshot of the preview to this path (.png or .jpg)" type:"path"`
	Width    int           `help:"Browser viewport width" default:"1024"`
	Height   int           `help:"Browser viewport height" default:"1366"`
	Headful  bool          `help:"Show the browser window while capturing"`
	Timeout  time.Duration `help:"Give up on the capture after this long" default:"60s"`
}

func (p *PreviewCmd) Run(ctx context.Context) error {
	previewURL := catalog.PreviewURL(p.ID)
	_, _ = fmt.Fprintln(stdout, previewURL)

	if p.Snapshot == "" {
		return nil
	}

	if err := takeSnapshot(ctx, preview.SnapshotOptions{
		URL:        previewURL,
		OutputPath: p.Snapshot,
		Width:      p.Width,
		Height:     p.Height,
		Headless:   !p.Headful,
		Timeout:    p.Timeout,
	}); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "Snapshot saved to %s\n", p.Snapshot)
	return nil
}

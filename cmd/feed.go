package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"
)

// FeedCmd represents the new-release feed command
type FeedCmd struct {
	Pages   int    `short:"p" help:"Number of pages to load" default:"1"`
	Subject string `help:"Subject to list (defaults to feed.subject)"`
}

func (f *FeedCmd) Run(ctx context.Context) error {
	if f.Pages < 1 {
		return fmt.Errorf("--pages must be at least 1, got %d", f.Pages)
	}

	a, err := openApp(viper.GetViper())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctrl := a.newFeedController(f.Subject)
	for page := 0; page < f.Pages && ctrl.State().HasMore; page++ {
		if err := ctrl.LoadMore(ctx); err != nil {
			return err
		}
	}

	state := ctrl.State()
	slog.Debug("Feed loaded", "books", len(state.Books), "pages", state.Page, "has_more", state.HasMore)

	if len(state.Books) == 0 {
		_, _ = fmt.Fprintln(stdout, "No new releases found.")
		return nil
	}
	printBooks(stdout, a.linesFor(state.Books))
	if state.HasMore {
		_, _ = fmt.Fprintf(stdout, "\nMore releases available, rerun with --pages %d\n", f.Pages+1)
	}
	return nil
}

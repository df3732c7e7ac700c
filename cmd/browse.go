package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lepinkainen/humanlog"
	"github.com/lepinkainen/readtube/internal/tui"
	"github.com/spf13/viper"
)

var runBrowser = tui.Run

// BrowseCmd represents the interactive browser command
type BrowseCmd struct {
	Genre string `short:"g" help:"Initial genre filter" default:"All"`
}

func (b *BrowseCmd) Run(ctx context.Context) error {
	a, err := openApp(viper.GetViper())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	// The terminal belongs to the browser; logs go to a file instead.
	restore, err := redirectLogs(a.cfg.LogFile, slog.LevelDebug)
	if err != nil {
		return err
	}
	defer restore()

	searchCtrl := a.newSearchController(0)
	defer searchCtrl.Close()

	genre, err := matchGenre(searchCtrl.Genres(), b.Genre)
	if err != nil {
		return err
	}
	if err := searchCtrl.SetGenre(ctx, genre); err != nil {
		return err
	}

	return runBrowser(ctx, tui.Deps{
		Search:    searchCtrl,
		Feed:      a.newFeedController(""),
		Bookmarks: a.bookmarks,
	})
}

// redirectLogs points the default logger at path until restore is called.
func redirectLogs(path string, level slog.Level) (func(), error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	previous := slog.Default()
	slog.SetDefault(slog.New(humanlog.NewHandler(f, &humanlog.Options{Level: level})))

	return func() {
		slog.SetDefault(previous)
		_ = f.Close()
	}, nil
}

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/lepinkainen/readtube/internal/search"
	"github.com/spf13/viper"
)

// SearchCmd represents the search command
type SearchCmd struct {
	Query []string `arg:"" help:"Search terms"`
	Genre string   `short:"g" help:"Restrict results to a genre (case-insensitive)" default:"All"`
	Limit int      `short:"n" help:"Maximum number of results (defaults to search.resultlimit)"`
}

func (s *SearchCmd) Run(ctx context.Context) error {
	a, err := openApp(viper.GetViper())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctrl := a.newSearchController(s.Limit)
	defer ctrl.Close()

	genre, err := matchGenre(ctrl.Genres(), s.Genre)
	if err != nil {
		return err
	}
	if err := ctrl.SetGenre(ctx, genre); err != nil {
		return err
	}

	if err := ctrl.Search(ctx, strings.Join(s.Query, " ")); err != nil {
		return err
	}

	results := ctrl.State().Results
	if len(results) == 0 {
		_, _ = fmt.Fprintln(stdout, "No books found.")
		return nil
	}
	printBooks(stdout, a.linesFor(results))
	return nil
}

// matchGenre resolves name against the configured genres ignoring case.
func matchGenre(genres []string, name string) (string, error) {
	for _, g := range genres {
		if strings.EqualFold(g, strings.TrimSpace(name)) {
			return g, nil
		}
	}
	return "", fmt.Errorf("%w: %q (available: %s)", search.ErrUnknownGenre, name, strings.Join(genres, ", "))
}

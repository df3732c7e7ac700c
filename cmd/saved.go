package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/lepinkainen/readtube/internal/catalog"
	"github.com/lepinkainen/readtube/internal/export"
	"github.com/spf13/viper"
)

// SavedCmd represents the saved command and its subcommands
type SavedCmd struct {
	List     SavedListCmd     `cmd:"" default:"1" help:"List saved books"`
	Toggle   SavedToggleCmd   `cmd:"" help:"Save a book, or remove it if already saved"`
	Progress SavedProgressCmd `cmd:"" help:"Record reading progress for a saved book"`
	Export   SavedExportCmd   `cmd:"" help:"Export saved books as markdown notes"`
}

// SavedListCmd lists saved books
type SavedListCmd struct {
	Filter string `short:"f" help:"Fuzzy filter on titles"`
	Shelf  bool   `help:"Only show books that are started but not finished"`
}

func (l *SavedListCmd) Run() error {
	a, err := openApp(viper.GetViper())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	var books []catalog.Book
	switch {
	case l.Shelf:
		books = a.bookmarks.Shelf()
	case strings.TrimSpace(l.Filter) != "":
		for _, r := range a.bookmarks.Filter(l.Filter) {
			books = append(books, r.Book)
		}
	default:
		books = a.bookmarks.List()
	}

	if len(books) == 0 {
		_, _ = fmt.Fprintln(stdout, "No saved books.")
		return nil
	}
	printBooks(stdout, a.linesFor(books))
	return nil
}

// SavedToggleCmd saves or removes a book by ID
type SavedToggleCmd struct {
	ID    string `arg:"" help:"Catalog volume ID"`
	Query string `short:"q" help:"Search terms used to find the book when it is not saved yet (defaults to the ID)"`
}

func (s *SavedToggleCmd) Run(ctx context.Context) error {
	a, err := openApp(viper.GetViper())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	book, ok := a.bookmarks.Get(s.ID)
	if !ok {
		book, err = findBook(ctx, a.searcher, s.ID, s.Query, a.cfg.Search.ResultLimit)
		if err != nil {
			return err
		}
	}

	saved, err := a.bookmarks.Toggle(book)
	if err != nil {
		return err
	}
	if saved {
		_, _ = fmt.Fprintf(stdout, "Saved %q\n", book.Title)
	} else {
		_, _ = fmt.Fprintf(stdout, "Removed %q\n", book.Title)
	}
	return nil
}

// findBook looks id up among the results for query.
func findBook(ctx context.Context, searcher catalog.Searcher, id, query string, limit int) (catalog.Book, error) {
	if strings.TrimSpace(query) == "" {
		query = id
	}
	books, err := searcher.Search(ctx, catalog.Query{Text: query, Limit: limit})
	if err != nil {
		return catalog.Book{}, err
	}
	for _, b := range books {
		if b.ID == id {
			return b, nil
		}
	}
	return catalog.Book{}, fmt.Errorf("book %q not found in results for %q, pass --query with its title", id, query)
}

// SavedProgressCmd records reading progress
type SavedProgressCmd struct {
	ID      string `arg:"" help:"Catalog volume ID of a saved book"`
	Percent int    `arg:"" help:"Percent read, clamped to 0-100"`
}

func (p *SavedProgressCmd) Run() error {
	a, err := openApp(viper.GetViper())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if err := a.bookmarks.SetProgress(p.ID, p.Percent); err != nil {
		return err
	}
	stored, _ := a.bookmarks.ProgressFor(p.ID)
	_, _ = fmt.Fprintf(stdout, "Progress for %s set to %d%%\n", p.ID, stored.Percent)
	return nil
}

// SavedExportCmd writes saved books to markdown notes
type SavedExportCmd struct {
	Dir           string `short:"o" help:"Directory for the notes" default:"./readtube-notes" type:"path"`
	Overwrite     bool   `help:"Overwrite existing notes"`
	NoCovers      bool   `help:"Keep remote cover URLs instead of downloading covers"`
	MaxCoverWidth int    `help:"Maximum width of downloaded covers in pixels" default:"600"`
}

func (e *SavedExportCmd) Run(ctx context.Context) error {
	a, err := openApp(viper.GetViper())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	exporter := export.NewExporter(e.Dir,
		export.WithOverwrite(e.Overwrite),
		export.WithCovers(!e.NoCovers),
		export.WithMaxCoverWidth(e.MaxCoverWidth),
	)

	result, err := exporter.Export(ctx, a.bookmarks.List(), func(id string) (int, bool) {
		p, ok := a.bookmarks.ProgressFor(id)
		return p.Percent, ok
	})
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(stdout, "Exported %d notes to %s (%d skipped, %d placeholder covers)\n",
		result.Written, e.Dir, result.Skipped, result.CoverFallbacks)
	return nil
}

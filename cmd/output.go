package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/lepinkainen/readtube/internal/catalog"
)

// bookLine describes how a single book is printed.
type bookLine struct {
	book     catalog.Book
	saved    bool
	progress int
	hasProg  bool
}

func printBooks(w io.Writer, lines []bookLine) {
	for i, line := range lines {
		b := line.book
		_, _ = fmt.Fprintf(w, "%d. %s\n", i+1, b.Title)
		_, _ = fmt.Fprintf(w, "   %s | %s | %s\n", b.Author, b.Genre, b.PublishedDate)
		_, _ = fmt.Fprintf(w, "   %s %s\n", b.Stars(), b.RatingLabel())

		var flags []string
		if b.IsFree {
			flags = append(flags, "free")
		}
		if line.saved {
			flags = append(flags, "saved")
		}
		if line.hasProg {
			flags = append(flags, fmt.Sprintf("%d%% read", line.progress))
		}
		if len(flags) > 0 {
			_, _ = fmt.Fprintf(w, "   [%s]\n", strings.Join(flags, ", "))
		}
		_, _ = fmt.Fprintf(w, "   id: %s\n", b.ID)
	}
}

// linesFor decorates books with their saved state and reading progress.
func (a *app) linesFor(books []catalog.Book) []bookLine {
	lines := make([]bookLine, 0, len(books))
	for _, b := range books {
		line := bookLine{book: b, saved: a.bookmarks.IsSaved(b.ID)}
		if p, ok := a.bookmarks.ProgressFor(b.ID); ok {
			line.progress = p.Percent
			line.hasProg = true
		}
		lines = append(lines, line)
	}
	return lines
}

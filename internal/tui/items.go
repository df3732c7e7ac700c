package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lepinkainen/readtube/internal/catalog"
)

type bookItem struct {
	book     catalog.Book
	saved    bool
	progress int
}

func (i bookItem) Title() string       { return i.book.Title }
func (i bookItem) Description() string { return i.book.Author }
func (i bookItem) FilterValue() string { return i.book.Title }

type termItem struct {
	term string
}

func (i termItem) FilterValue() string { return i.term }

type bookDelegate struct {
	styles itemStyles
}

func newDelegate() bookDelegate {
	return bookDelegate{styles: newItemStyles()}
}

func (d bookDelegate) Height() int                         { return 5 }
func (d bookDelegate) Spacing() int                        { return 0 }
func (d bookDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

func (d bookDelegate) Render(w io.Writer, m list.Model, idx int, item list.Item) {
	width := m.Width() - 6

	var content string
	switch it := item.(type) {
	case bookItem:
		content = d.renderBook(it, width)
	case termItem:
		content = lipgloss.JoinVertical(lipgloss.Left,
			d.styles.titleStyle.Render(truncate(it.term, width)),
			d.styles.metaStyle.Render("recent search"),
			"")
	default:
		return
	}

	container := d.styles.normal
	if idx == m.Index() {
		container = d.styles.selected
	}
	_, _ = fmt.Fprint(w, container.Render(content))
}

func (d bookDelegate) renderBook(it bookItem, width int) string {
	b := it.book

	title := d.styles.titleStyle.Render(truncate(b.Title, width))
	if it.saved {
		title = d.styles.savedStyle.Render("♥ ") + title
	}

	meta := []string{b.Genre, b.PublishedDate}
	if it.progress > 0 {
		meta = append(meta, fmt.Sprintf("%d%% read", it.progress))
	}

	ratingLine := d.styles.ratingStyle.Render(b.Stars())
	if b.IsFree {
		ratingLine += " " + d.styles.freeStyle.Render("FREE")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		d.styles.authorStyle.Render(truncate(b.Author, width))+" "+
			d.styles.metaStyle.Render(truncate(strings.Join(meta, " | "), width/2)),
		ratingLine,
	)
}

func truncate(value string, width int) string {
	value = strings.Join(strings.Fields(value), " ")
	runes := []rune(value)
	if width <= 0 || len(runes) <= width {
		return value
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}

func clamp(defaultValue, available, minimum int) int {
	width := defaultValue
	if available > 0 && available < defaultValue {
		width = available
	}
	if width < minimum {
		width = minimum
	}
	return width
}

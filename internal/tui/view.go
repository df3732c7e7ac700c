package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lepinkainen/readtube/internal/catalog"
	"github.com/lepinkainen/readtube/internal/search"
)

func (m *model) View() string {
	header := lipgloss.JoinHorizontal(lipgloss.Center,
		headerStyle.Render("ReadTube"),
		"  ",
		genreStyle.Render(m.searchState.Genre),
		"  ",
		labelStyle.Render(statusLabel(m.searchState.Status, m.feedState.Loading)),
	)

	if m.overlay != overlayNone {
		return lipgloss.JoinVertical(lipgloss.Left, header, "", m.overlayView())
	}

	box := inputStyle
	if m.input.Focused() {
		box = focusedInputStyle
	}
	sections := []string{header, box.Width(m.width - 2).Render(m.input.View())}

	if m.input.Focused() && len(m.searchState.Suggestions) > 0 {
		sections = append(sections, m.suggestionsView())
	}

	if m.searchState.Err != "" {
		sections = append(sections, errorStyle.Render(m.searchState.Err))
	}
	if m.active == paneNewReleases && m.feedState.Err != "" {
		sections = append(sections, errorStyle.Render(m.feedState.Err))
	}

	sections = append(sections, m.tabsView(), m.list.View())

	if m.active == paneNewReleases {
		switch {
		case m.feedState.Loading:
			sections = append(sections, infoStyle.Render("Loading..."))
		case m.feedState.HasMore:
			sections = append(sections, infoStyle.Render("m load more"))
		}
	}

	if m.status != "" {
		sections = append(sections, infoStyle.Render(m.status))
	}

	sections = append(sections, helpStyle.Render(m.helpLine()))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func statusLabel(status search.Status, feedLoading bool) string {
	switch {
	case status == search.StatusSearching:
		return "searching..."
	case status == search.StatusSuggesting:
		return "typing..."
	case feedLoading:
		return "loading..."
	}
	return ""
}

func (m *model) suggestionsView() string {
	lines := make([]string, 0, len(m.searchState.Suggestions))
	for i, b := range m.searchState.Suggestions {
		line := fmt.Sprintf("%s - %s", truncate(b.Title, m.width/2), truncate(b.Author, m.width/3))
		if i == m.suggestionIdx {
			lines = append(lines, activeSuggestionStyle.Render("> "+line))
		} else {
			lines = append(lines, suggestionStyle.Render("  "+line))
		}
	}
	return strings.Join(lines, "\n")
}

func (m *model) tabsView() string {
	tabs := make([]string, 0, paneCount)
	for p := pane(0); p < paneCount; p++ {
		label := p.String()
		switch p {
		case paneSaved:
			label = fmt.Sprintf("%s (%d)", label, m.deps.Bookmarks.Len())
		case paneNewReleases:
			label = fmt.Sprintf("%s (%d)", label, len(m.feedState.Books))
		}
		if p == m.active {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Left, tabs...)
}

func (m *model) helpLine() string {
	if m.input.Focused() {
		return "enter search | up/down suggestions | esc clear | tab leave"
	}
	return "/ search | tab pane | g genre | enter open | d details | p preview | b bookmark | y copy link | m more | x clear history | q quit"
}

func (m *model) overlayView() string {
	b := m.selected
	width := m.width - 8

	if m.overlay == overlayPreview {
		body := lipgloss.JoinVertical(lipgloss.Left,
			headerStyle.Render(b.Title),
			"",
			labelStyle.Render("Preview"),
			catalog.PreviewURL(b.ID),
			"",
			helpStyle.Render("y copy preview link | d details | esc close"),
		)
		// no fixed width, the URL must stay on one line to be copyable
		return modalStyle.Render(body)
	}

	saved := "Not saved"
	if m.deps.Bookmarks.IsSaved(b.ID) {
		saved = "♥ Saved"
		if p, ok := m.deps.Bookmarks.ProgressFor(b.ID); ok && p.Percent > 0 {
			saved = fmt.Sprintf("♥ Saved, %d%% read", p.Percent)
		}
	}
	price := "Paid"
	if b.IsFree {
		price = "Free"
	}

	field := func(label, value string) string {
		return labelStyle.Render(label+": ") + value
	}

	lines := []string{
		headerStyle.Render(b.Title),
		field("Author", b.Author),
		field("Genre", b.Genre),
		field("Published", b.PublishedDate),
		field("Rating", b.Stars()+" "+b.RatingLabel()),
		field("Price", price),
		saved,
		"",
		lipgloss.NewStyle().Width(width).Render(b.Description),
	}
	if b.InfoLink != "" {
		lines = append(lines, "", field("More info", b.InfoLink))
	}
	lines = append(lines, "", helpStyle.Render("b bookmark | p preview | y copy link | esc close"))

	return modalStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

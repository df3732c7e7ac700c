// Package tui provides the interactive terminal browser.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lepinkainen/readtube/internal/bookmarks"
	"github.com/lepinkainen/readtube/internal/catalog"
	"github.com/lepinkainen/readtube/internal/feed"
	"github.com/lepinkainen/readtube/internal/search"
)

const (
	defaultListWidth  = 80
	defaultListHeight = 20
)

var runProgram = func(m tea.Model) (tea.Model, error) {
	return tea.NewProgram(m, tea.WithAltScreen()).Run()
}

var copyToClipboard = clipboard.WriteAll

type pane int

const (
	paneResults pane = iota
	paneNewReleases
	paneSaved
	paneHistory
	paneCount
)

func (p pane) String() string {
	switch p {
	case paneResults:
		return "Results"
	case paneNewReleases:
		return "New Releases"
	case paneSaved:
		return "Saved"
	case paneHistory:
		return "Recent"
	}
	return ""
}

type overlay int

const (
	overlayNone overlay = iota
	overlayDetail
	overlayPreview
)

// Deps are the controllers the browser drives.
type Deps struct {
	Search    *search.Controller
	Feed      *feed.Controller
	Bookmarks *bookmarks.Store
}

type (
	// refreshMsg signals that a controller changed state.
	refreshMsg struct{}
	searchDoneMsg struct {
		err error
	}
	feedDoneMsg struct {
		err error
	}
)

type model struct {
	ctx  context.Context
	deps Deps

	input         textinput.Model
	list          list.Model
	active        pane
	overlay       overlay
	selected      catalog.Book
	suggestionIdx int

	searchState search.State
	feedState   feed.State

	status  string
	updates chan struct{}
	width   int
}

func newModel(ctx context.Context, deps Deps) *model {
	input := textinput.New()
	input.Placeholder = "Search books..."
	input.CharLimit = 200
	input.Width = defaultListWidth - 10
	input.Prompt = "🔍 "

	l := list.New(nil, newDelegate(), defaultListWidth, defaultListHeight)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.SetShowTitle(false)
	l.DisableQuitKeybindings()
	l.Styles.NoItems = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).PaddingLeft(2)

	m := &model{
		ctx:           ctx,
		deps:          deps,
		input:         input,
		list:          l,
		active:        paneNewReleases,
		suggestionIdx: -1,
		updates:       make(chan struct{}, 1),
		width:         defaultListWidth,
	}

	signal := func() {
		select {
		case m.updates <- struct{}{}:
		default:
			// a refresh is already queued and will read the latest state
		}
	}
	deps.Search.OnChange(func(search.State) { signal() })
	deps.Feed.OnChange(func(feed.State) { signal() })

	m.pull()
	m.refreshList()
	return m
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.waitForUpdate(), m.startFeed())
}

func (m *model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.updates:
			return refreshMsg{}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *model) startFeed() tea.Cmd {
	return func() tea.Msg {
		return feedDoneMsg{err: m.deps.Feed.Start(m.ctx)}
	}
}

func (m *model) loadMore() tea.Cmd {
	return func() tea.Msg {
		return feedDoneMsg{err: m.deps.Feed.LoadMore(m.ctx)}
	}
}

func (m *model) runSearch(run func(ctx context.Context) error) tea.Cmd {
	if m.active != paneResults {
		m.switchPane(paneResults)
	}
	return func() tea.Msg {
		return searchDoneMsg{err: run(m.ctx)}
	}
}

// pull copies the latest controller state into the model.
func (m *model) pull() {
	m.searchState = m.deps.Search.State()
	m.feedState = m.deps.Feed.State()
	if m.suggestionIdx >= len(m.searchState.Suggestions) {
		m.suggestionIdx = len(m.searchState.Suggestions) - 1
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshMsg:
		m.pull()
		m.refreshList()
		return m, m.waitForUpdate()

	case searchDoneMsg:
		if msg.err != nil {
			slog.Debug("Search failed", "error", msg.err)
		}
		m.pull()
		m.refreshList()
		return m, nil

	case feedDoneMsg:
		if msg.err != nil {
			slog.Debug("Feed load failed", "error", msg.err)
		}
		m.pull()
		m.refreshList()
		return m, nil

	case tea.WindowSizeMsg:
		m.width = clamp(defaultListWidth, msg.Width-2, 40)
		height := clamp(defaultListHeight, msg.Height-12, 5)
		m.list.SetSize(m.width, height)
		m.input.Width = m.width - 10
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.overlay != overlayNone {
			return m.updateOverlay(msg)
		}
		if m.input.Focused() {
			return m.updateInput(msg)
		}
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *model) updateOverlay(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.overlay = overlayNone
	case "b":
		m.toggleBookmark(m.selected)
	case "p":
		m.overlay = overlayPreview
	case "d":
		m.overlay = overlayDetail
	case "y":
		link := m.selected.InfoLink
		if m.overlay == overlayPreview || link == "" {
			link = catalog.PreviewURL(m.selected.ID)
		}
		m.copyLink(link)
	}
	return m, nil
}

func (m *model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	suggestions := m.searchState.Suggestions

	switch msg.String() {
	case "esc":
		m.deps.Search.Clear()
		m.input.SetValue("")
		m.input.Blur()
		m.suggestionIdx = -1
		m.pull()
		return m, nil
	case "tab":
		m.input.Blur()
		return m, nil
	case "down":
		if len(suggestions) > 0 {
			m.suggestionIdx = min(m.suggestionIdx+1, len(suggestions)-1)
		}
		return m, nil
	case "up":
		if m.suggestionIdx >= 0 {
			m.suggestionIdx--
		}
		return m, nil
	case "enter":
		m.input.Blur()
		if m.suggestionIdx >= 0 && m.suggestionIdx < len(suggestions) {
			book := suggestions[m.suggestionIdx]
			m.suggestionIdx = -1
			m.input.SetValue(book.Title)
			return m, m.runSearch(func(ctx context.Context) error {
				return m.deps.Search.SelectSuggestion(ctx, book)
			})
		}
		query := m.input.Value()
		if strings.TrimSpace(query) == "" {
			return m, nil
		}
		return m, m.runSearch(func(ctx context.Context) error {
			return m.deps.Search.Search(ctx, query)
		})
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before {
		m.suggestionIdx = -1
		m.deps.Search.Type(after)
	}
	return m, cmd
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "q":
		return tea.Quit, true
	case "/":
		m.overlay = overlayNone
		return m.input.Focus(), true
	case "tab":
		m.switchPane((m.active + 1) % paneCount)
		return nil, true
	case "shift+tab":
		m.switchPane((m.active + paneCount - 1) % paneCount)
		return nil, true
	case "g":
		genre := m.deps.Search.NextGenre()
		return m.runSearchKeepPane(func(ctx context.Context) error {
			return m.deps.Search.SetGenre(ctx, genre)
		}), true
	case "m":
		if m.active == paneNewReleases && m.feedState.HasMore {
			return m.loadMore(), true
		}
		return nil, true
	case "x":
		if h := m.deps.Search.History(); h != nil {
			if err := h.Clear(); err != nil {
				m.status = "Could not clear history: " + err.Error()
			} else {
				m.status = "Search history cleared"
			}
			m.refreshList()
		}
		return nil, true
	case "enter":
		if term, ok := m.list.SelectedItem().(termItem); ok {
			m.input.SetValue(term.term)
			return m.runSearch(func(ctx context.Context) error {
				return m.deps.Search.SelectHistory(ctx, term.term)
			}), true
		}
		if book, ok := m.selectedBook(); ok {
			m.selected = book
			m.overlay = overlayDetail
		}
		return nil, true
	case "d", "p":
		if book, ok := m.selectedBook(); ok {
			m.selected = book
			m.overlay = overlayDetail
			if msg.String() == "p" {
				m.overlay = overlayPreview
			}
		}
		return nil, true
	case "b":
		if book, ok := m.selectedBook(); ok {
			m.toggleBookmark(book)
		}
		return nil, true
	case "y":
		if book, ok := m.selectedBook(); ok {
			link := book.InfoLink
			if link == "" {
				link = catalog.PreviewURL(book.ID)
			}
			m.copyLink(link)
		}
		return nil, true
	case "esc":
		m.status = ""
		return nil, true
	}
	return nil, false
}

func (m *model) runSearchKeepPane(run func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return searchDoneMsg{err: run(m.ctx)}
	}
}

func (m *model) switchPane(p pane) {
	m.active = p
	m.list.Select(0)
	m.refreshList()
}

func (m *model) selectedBook() (catalog.Book, bool) {
	item, ok := m.list.SelectedItem().(bookItem)
	if !ok {
		return catalog.Book{}, false
	}
	return item.book, true
}

func (m *model) toggleBookmark(book catalog.Book) {
	saved, err := m.deps.Bookmarks.Toggle(book)
	switch {
	case err != nil:
		m.status = "Could not update bookmarks: " + err.Error()
	case saved:
		m.status = fmt.Sprintf("Saved %q", book.Title)
	default:
		m.status = fmt.Sprintf("Removed %q", book.Title)
	}
	m.refreshList()
}

func (m *model) copyLink(link string) {
	if err := copyToClipboard(link); err != nil {
		m.status = "Clipboard unavailable: " + err.Error()
		return
	}
	m.status = "Copied " + link
}

// refreshList rebuilds the list items for the active pane.
func (m *model) refreshList() {
	var items []list.Item
	switch m.active {
	case paneResults:
		items = m.bookItems(m.searchState.Results)
	case paneNewReleases:
		items = m.bookItems(m.feedState.Books)
	case paneSaved:
		items = m.bookItems(m.savedOrder())
	case paneHistory:
		for _, term := range m.deps.Search.RecentSearches() {
			items = append(items, termItem{term: term})
		}
	}

	idx := m.list.Index()
	m.list.SetItems(items)
	if idx >= len(items) {
		idx = max(0, len(items)-1)
	}
	m.list.Select(idx)
}

// savedOrder lists started books first, then the rest of the saved set.
func (m *model) savedOrder() []catalog.Book {
	shelf := m.deps.Bookmarks.Shelf()
	onShelf := make(map[string]bool, len(shelf))
	for _, b := range shelf {
		onShelf[b.ID] = true
	}
	ordered := shelf
	for _, b := range m.deps.Bookmarks.List() {
		if !onShelf[b.ID] {
			ordered = append(ordered, b)
		}
	}
	return ordered
}

func (m *model) bookItems(books []catalog.Book) []list.Item {
	items := make([]list.Item, len(books))
	for i, b := range books {
		item := bookItem{book: b, saved: m.deps.Bookmarks.IsSaved(b.ID)}
		if p, ok := m.deps.Bookmarks.ProgressFor(b.ID); ok {
			item.progress = p.Percent
		}
		items[i] = item
	}
	return items
}

// Run starts the interactive browser and blocks until the user quits.
func Run(ctx context.Context, deps Deps) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newModel(ctx, deps)
	if _, err := runProgram(m); err != nil {
		return fmt.Errorf("running browser: %w", err)
	}
	return nil
}

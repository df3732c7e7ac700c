// Package search drives the search bar: debounced suggestions while typing,
// explicit searches, the genre filter and the recent-search history.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/lepinkainen/readtube/internal/catalog"
	rterrors "github.com/lepinkainen/readtube/internal/errors"
	"github.com/lepinkainen/readtube/internal/history"
)

const (
	DefaultDebounce        = 300 * time.Millisecond
	DefaultSuggestionLimit = 5
	DefaultResultLimit     = 20
)

// ErrUnknownGenre is returned by SetGenre for a genre outside the configured list.
var ErrUnknownGenre = errors.New("unknown genre")

// Options configures a Controller. Zero values fall back to the defaults.
type Options struct {
	Genres          []string
	SuggestionLimit int
	ResultLimit     int
	Debounce        time.Duration
	Clock           Clock
}

// Controller owns the search bar state. All methods are safe for concurrent
// use; catalog requests run outside the lock.
//
// Every request takes a number from a single increasing counter. A response
// is applied only if its number is still the latest issued for its kind, so
// a slow early response can never overwrite a newer one.
type Controller struct {
	searcher catalog.Searcher
	history  *history.History
	opts     Options

	mu            sync.Mutex
	state         State
	seq           uint64
	latestSuggest uint64
	latestSearch  uint64
	pending       Timer
	pendingCancel context.CancelFunc
	observers     []func(State)
}

// New creates a controller. hist may be nil to disable the recent-search
// history.
func New(searcher catalog.Searcher, hist *history.History, opts Options) *Controller {
	if len(opts.Genres) == 0 {
		opts.Genres = []string{catalog.AllGenres}
	}
	if opts.SuggestionLimit <= 0 {
		opts.SuggestionLimit = DefaultSuggestionLimit
	}
	if opts.ResultLimit <= 0 {
		opts.ResultLimit = DefaultResultLimit
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}

	return &Controller{
		searcher: searcher,
		history:  hist,
		opts:     opts,
		state: State{
			Genre:  opts.Genres[0],
			Status: StatusIdle,
		},
	}
}

// OnChange registers fn to be called with a snapshot after every state change.
// Callbacks run on the goroutine that made the change and must not block.
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Genres returns the configured genre filters.
func (c *Controller) Genres() []string {
	return slices.Clone(c.opts.Genres)
}

// RecentSearches returns the remembered search terms, most recent first.
func (c *Controller) RecentSearches() []string {
	if c.history == nil {
		return nil
	}
	return c.history.List()
}

// History exposes the underlying history for removal and clearing.
func (c *Controller) History() *history.History {
	return c.history
}

// Type records the current input text. Non-blank text (re)arms the debounce
// timer; only the last keystroke of a burst fetches suggestions. Blank text
// behaves like Clear.
func (c *Controller) Type(text string) {
	c.mu.Lock()
	if strings.TrimSpace(text) == "" {
		c.clearLocked()
		c.mu.Unlock()
		c.notify()
		return
	}

	c.state.Query = text
	c.state.Status = StatusSuggesting
	c.cancelPendingLocked()

	c.seq++
	id := c.seq
	c.latestSuggest = id

	ctx, cancel := context.WithCancel(context.Background())
	c.pendingCancel = cancel
	c.pending = c.opts.Clock.AfterFunc(c.opts.Debounce, func() {
		c.fetchSuggestions(ctx, id, text)
	})
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) fetchSuggestions(ctx context.Context, id uint64, text string) {
	c.mu.Lock()
	if id != c.latestSuggest || ctx.Err() != nil {
		c.mu.Unlock()
		return
	}
	c.pending = nil
	genre := c.state.Genre
	c.mu.Unlock()

	books, err := c.searcher.Search(ctx, catalog.Query{
		Text:  text,
		Genre: genre,
		Limit: c.opts.SuggestionLimit,
		Order: catalog.OrderRelevance,
	})

	c.mu.Lock()
	if id != c.latestSuggest || ctx.Err() != nil {
		c.mu.Unlock()
		slog.Debug("Discarding stale suggestions", "query", text, "seq", id)
		return
	}
	if err != nil {
		slog.Warn("Suggestion fetch failed", "query", text, "error", err)
		c.state.Status = StatusError
		c.state.Err = rterrors.UserMessage(err)
	} else {
		c.state.Suggestions = books
		c.state.Status = StatusIdle
		c.state.Err = ""
	}
	if c.pendingCancel != nil {
		c.pendingCancel()
		c.pendingCancel = nil
	}
	c.mu.Unlock()
	c.notify()
}

// Search runs an explicit search for text. On success the results are
// replaced, suggestions are cleared and the term is added to the history.
// On failure the previous results are kept and the error is returned.
// Blank text is a no-op.
func (c *Controller) Search(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	c.mu.Lock()
	c.state.Query = text
	c.cancelPendingLocked()
	c.seq++
	id := c.seq
	c.latestSearch = id
	c.state.Status = StatusSearching
	c.state.Err = ""
	genre := c.state.Genre
	c.mu.Unlock()
	c.notify()

	slog.Debug("Searching", "query", text, "genre", genre, "seq", id)
	books, err := c.searcher.Search(ctx, catalog.Query{
		Text:  text,
		Genre: genre,
		Limit: c.opts.ResultLimit,
		Page:  0,
		Order: catalog.OrderRelevance,
	})

	c.mu.Lock()
	if id != c.latestSearch {
		c.mu.Unlock()
		slog.Debug("Discarding stale search results", "query", text, "seq", id)
		return nil
	}
	if err != nil {
		c.state.Status = StatusError
		c.state.Err = rterrors.UserMessage(err)
		c.mu.Unlock()
		c.notify()
		return fmt.Errorf("search %q: %w", text, err)
	}
	c.state.Results = books
	c.state.Suggestions = nil
	c.state.Status = StatusIdle
	if c.suggestionPendingLocked() {
		// typed while the search was in flight
		c.state.Status = StatusSuggesting
	}
	c.mu.Unlock()

	if c.history != nil {
		if err := c.history.Add(text); err != nil {
			slog.Warn("Failed to record search history", "query", text, "error", err)
		}
	}
	c.notify()
	return nil
}

// SelectSuggestion searches for the suggested book's title.
func (c *Controller) SelectSuggestion(ctx context.Context, book catalog.Book) error {
	return c.Search(ctx, book.Title)
}

// SelectHistory re-runs a remembered search term.
func (c *Controller) SelectHistory(ctx context.Context, term string) error {
	return c.Search(ctx, term)
}

// SetGenre changes the genre filter. With a non-blank query the explicit
// search is re-run under the new filter.
func (c *Controller) SetGenre(ctx context.Context, genre string) error {
	if !slices.Contains(c.opts.Genres, genre) {
		return fmt.Errorf("%w: %q", ErrUnknownGenre, genre)
	}

	c.mu.Lock()
	c.state.Genre = genre
	query := c.state.Query
	c.mu.Unlock()

	if strings.TrimSpace(query) != "" {
		return c.Search(ctx, query)
	}
	c.notify()
	return nil
}

// NextGenre returns the genre after the current one, wrapping around.
func (c *Controller) NextGenre() string {
	c.mu.Lock()
	current := c.state.Genre
	c.mu.Unlock()

	idx := slices.Index(c.opts.Genres, current)
	return c.opts.Genres[(idx+1)%len(c.opts.Genres)]
}

// Clear empties the query and suggestions and cancels any pending suggestion
// fetch. Results are kept.
func (c *Controller) Clear() {
	c.mu.Lock()
	c.clearLocked()
	c.mu.Unlock()
	c.notify()
}

// Close stops any pending suggestion timer.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelPendingLocked()
}

func (c *Controller) clearLocked() {
	c.cancelPendingLocked()
	c.state.Query = ""
	c.state.Suggestions = nil
	c.state.Status = StatusIdle
	c.state.Err = ""
}

// suggestionPendingLocked reports whether a debounce timer is armed or a
// suggestion request is in flight.
func (c *Controller) suggestionPendingLocked() bool {
	return c.pending != nil || c.pendingCancel != nil
}

// cancelPendingLocked stops the debounce timer and cancels an in-flight
// suggestion request. Bumping latestSuggest invalidates anything already
// past the timer.
func (c *Controller) cancelPendingLocked() {
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
	if c.pendingCancel != nil {
		c.pendingCancel()
		c.pendingCancel = nil
	}
	c.seq++
	c.latestSuggest = c.seq
}

func (c *Controller) notify() {
	c.mu.Lock()
	snapshot := c.state.clone()
	observers := slices.Clone(c.observers)
	c.mu.Unlock()

	for _, fn := range observers {
		fn(snapshot)
	}
}

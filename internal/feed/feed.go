// Package feed pages through the newest releases for a subject.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/lepinkainen/readtube/internal/catalog"
	rterrors "github.com/lepinkainen/readtube/internal/errors"
)

const (
	DefaultSubject  = "fiction"
	DefaultPageSize = 20
)

// ErrLoadInProgress is returned by LoadMore while another page is loading.
var ErrLoadInProgress = errors.New("feed load already in progress")

// State is a snapshot of the feed.
type State struct {
	Books   []catalog.Book
	Page    int // next page to load, zero-based
	HasMore bool
	Loading bool
	Err     string
}

// Controller accumulates pages of new releases. At most one page is in
// flight at a time and earlier pages are never discarded.
type Controller struct {
	searcher catalog.Searcher
	subject  string
	pageSize int

	mu        sync.Mutex
	state     State
	seen      map[string]bool
	startOnce sync.Once
	observers []func(State)
}

// New creates a feed over searcher. Empty subject or non-positive page size
// fall back to the defaults.
func New(searcher catalog.Searcher, subject string, pageSize int) *Controller {
	if subject == "" {
		subject = DefaultSubject
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Controller{
		searcher: searcher,
		subject:  subject,
		pageSize: pageSize,
		state:    State{HasMore: true},
		seen:     make(map[string]bool),
	}
}

// OnChange registers fn to be called with a snapshot after every change.
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// State returns a snapshot of the feed.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Books = slices.Clone(s.Books)
	return s
}

// Start loads the first page. Only the first call does anything.
func (c *Controller) Start(ctx context.Context) error {
	var err error
	c.startOnce.Do(func() {
		err = c.LoadMore(ctx)
	})
	return err
}

// LoadMore fetches the page at the cursor and appends it. A call made while
// a load is in flight returns ErrLoadInProgress without doing anything. On
// failure the books, cursor and HasMore are left untouched.
func (c *Controller) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Loading {
		c.mu.Unlock()
		return ErrLoadInProgress
	}
	c.state.Loading = true
	c.state.Err = ""
	page := c.state.Page
	c.mu.Unlock()
	c.notify()

	slog.Debug("Loading feed page", "subject", c.subject, "page", page)
	books, err := c.searcher.Search(ctx, catalog.Query{
		Text:  "subject:" + c.subject,
		Limit: c.pageSize,
		Page:  page,
		Order: catalog.OrderNewest,
	})

	c.mu.Lock()
	c.state.Loading = false
	if err != nil {
		c.state.Err = rterrors.UserMessage(err)
		c.mu.Unlock()
		c.notify()
		return fmt.Errorf("loading feed page %d: %w", page, err)
	}

	added := 0
	for _, b := range books {
		if c.seen[b.ID] {
			continue
		}
		c.seen[b.ID] = true
		c.state.Books = append(c.state.Books, b)
		added++
	}
	c.state.Page = page + 1
	c.state.HasMore = len(books) == c.pageSize
	total := len(c.state.Books)
	c.mu.Unlock()

	slog.Debug("Feed page loaded", "page", page, "received", len(books), "added", added, "total", total)
	c.notify()
	return nil
}

func (c *Controller) notify() {
	snapshot := c.State()
	c.mu.Lock()
	observers := slices.Clone(c.observers)
	c.mu.Unlock()
	for _, fn := range observers {
		fn(snapshot)
	}
}

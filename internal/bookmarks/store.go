// Package bookmarks persists the user's saved books and reading progress.
package bookmarks

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/lepinkainen/readtube/internal/catalog"
	"github.com/lepinkainen/readtube/internal/datastore"
)

// Storage keys.
const (
	SavedBooksKey = "savedBooks"
	ProgressKey   = "readingProgress"
)

// Progress is how far the user got through a saved book.
type Progress struct {
	Percent   int       `json:"percent"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store is the set of saved books, in the order they were saved.
// Every mutation is written through to the datastore before it returns.
type Store struct {
	mu       sync.RWMutex
	kv       datastore.KV
	books    []catalog.Book
	progress map[string]Progress
	now      func() time.Time
}

// Load reads saved books and progress from kv. Missing or malformed values
// start empty and are only logged.
func Load(kv datastore.KV) *Store {
	s := &Store{
		kv:       kv,
		progress: make(map[string]Progress),
		now:      time.Now,
	}

	var books []catalog.Book
	if readJSON(kv, SavedBooksKey, &books) {
		seen := make(map[string]bool, len(books))
		for _, b := range books {
			if b.ID == "" || seen[b.ID] {
				continue
			}
			seen[b.ID] = true
			s.books = append(s.books, b)
		}
	}

	var progress map[string]Progress
	if readJSON(kv, ProgressKey, &progress) {
		for id, p := range progress {
			s.progress[id] = p
		}
	}

	slog.Debug("Loaded bookmarks", "saved", len(s.books), "in_progress", len(s.progress))
	return s
}

func readJSON(kv datastore.KV, key string, target any) bool {
	raw, found, err := kv.Get(key)
	if err != nil {
		slog.Debug("Could not read stored value", "key", key, "error", err)
		return false
	}
	if !found {
		return false
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		slog.Debug("Ignoring malformed stored value", "key", key, "error", err)
		return false
	}
	return true
}

// Toggle saves book if it is not saved yet and removes it otherwise.
// It reports whether the book is saved afterwards. When the write fails the
// set is left as it was and the error is returned.
func (s *Store) Toggle(book catalog.Book) (bool, error) {
	if book.ID == "" {
		return false, fmt.Errorf("cannot bookmark a book without an ID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(book.ID)
	var updated []catalog.Book
	if idx >= 0 {
		updated = slices.Delete(slices.Clone(s.books), idx, idx+1)
	} else {
		updated = append(slices.Clone(s.books), book)
	}

	if err := s.writeBooks(updated); err != nil {
		return idx >= 0, err
	}
	s.books = updated

	if idx >= 0 {
		if _, ok := s.progress[book.ID]; ok {
			delete(s.progress, book.ID)
			if err := s.writeProgress(); err != nil {
				// shelf only lists saved books, a stale entry is harmless
				slog.Warn("Failed to drop reading progress", "id", book.ID, "error", err)
			}
		}
		slog.Debug("Removed bookmark", "id", book.ID, "title", book.Title)
		return false, nil
	}

	slog.Debug("Saved bookmark", "id", book.ID, "title", book.Title)
	return true, nil
}

// IsSaved reports whether a book with id is saved.
func (s *Store) IsSaved(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOf(id) >= 0
}

// List returns a copy of the saved books in insertion order.
func (s *Store) List() []catalog.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.books)
}

// Len returns the number of saved books.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.books)
}

// Get returns the saved book with id.
func (s *Store) Get(id string) (catalog.Book, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.indexOf(id); idx >= 0 {
		return s.books[idx], true
	}
	return catalog.Book{}, false
}

// SetProgress records reading progress for a saved book, clamped to 0..100.
func (s *Store) SetProgress(id string, percent int) error {
	percent = max(0, min(100, percent))

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(id) < 0 {
		return fmt.Errorf("book %q is not saved", id)
	}

	previous, hadPrevious := s.progress[id]
	s.progress[id] = Progress{Percent: percent, UpdatedAt: s.now().UTC()}
	if err := s.writeProgress(); err != nil {
		if hadPrevious {
			s.progress[id] = previous
		} else {
			delete(s.progress, id)
		}
		return err
	}
	return nil
}

// ProgressFor returns the stored progress for id.
func (s *Store) ProgressFor(id string) (Progress, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.progress[id]
	return p, ok
}

// Shelf returns saved books that are started but not finished, most
// recently updated first.
func (s *Store) Shelf() []catalog.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type entry struct {
		book    catalog.Book
		updated time.Time
	}
	var entries []entry
	for _, b := range s.books {
		p, ok := s.progress[b.ID]
		if !ok || p.Percent <= 0 || p.Percent >= 100 {
			continue
		}
		entries = append(entries, entry{book: b, updated: p.UpdatedAt})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].updated.After(entries[j].updated)
	})

	shelf := make([]catalog.Book, len(entries))
	for i, e := range entries {
		shelf[i] = e.book
	}
	return shelf
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.books, func(b catalog.Book) bool { return b.ID == id })
}

func (s *Store) writeBooks(books []catalog.Book) error {
	if books == nil {
		books = []catalog.Book{}
	}
	data, err := json.Marshal(books)
	if err != nil {
		return fmt.Errorf("encoding saved books: %w", err)
	}
	if err := s.kv.Set(SavedBooksKey, string(data)); err != nil {
		return fmt.Errorf("saving bookmarks: %w", err)
	}
	return nil
}

func (s *Store) writeProgress() error {
	data, err := json.Marshal(s.progress)
	if err != nil {
		return fmt.Errorf("encoding reading progress: %w", err)
	}
	if err := s.kv.Set(ProgressKey, string(data)); err != nil {
		return fmt.Errorf("saving reading progress: %w", err)
	}
	return nil
}

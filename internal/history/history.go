// Package history keeps the most recent explicit search terms.
package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/lepinkainen/readtube/internal/datastore"
)

// StorageKey is the datastore key the history is persisted under.
const StorageKey = "recentSearches"

// MaxEntries caps the number of remembered terms.
const MaxEntries = 5

// History is a most-recent-first list of distinct search terms.
// It is safe for concurrent use.
type History struct {
	mu    sync.Mutex
	kv    datastore.KV
	terms []string
}

// Load reads the persisted history. Missing or malformed data yields an
// empty history; the error is only logged.
func Load(kv datastore.KV) *History {
	h := &History{kv: kv}

	raw, found, err := kv.Get(StorageKey)
	if err != nil {
		slog.Debug("Could not read search history", "error", err)
		return h
	}
	if !found {
		return h
	}

	var terms []string
	if err := json.Unmarshal([]byte(raw), &terms); err != nil {
		slog.Debug("Ignoring malformed search history", "error", err)
		return h
	}

	// Clean up anything written by an older or hand-edited store.
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" || slices.Contains(h.terms, term) {
			continue
		}
		h.terms = append(h.terms, term)
		if len(h.terms) == MaxEntries {
			break
		}
	}
	return h
}

// Add records term as the most recent search. Blank terms are ignored and an
// existing term moves to the front.
func (h *History) Add(term string) error {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	updated := make([]string, 0, MaxEntries)
	updated = append(updated, term)
	for _, existing := range h.terms {
		if existing != term && len(updated) < MaxEntries {
			updated = append(updated, existing)
		}
	}
	return h.replace(updated)
}

// Remove drops term from the history.
func (h *History) Remove(term string) error {
	term = strings.TrimSpace(term)

	h.mu.Lock()
	defer h.mu.Unlock()

	idx := slices.Index(h.terms, term)
	if idx < 0 {
		return nil
	}
	return h.replace(slices.Delete(slices.Clone(h.terms), idx, idx+1))
}

// Clear forgets every term.
func (h *History) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.replace([]string{})
}

// List returns a copy of the terms, most recent first.
func (h *History) List() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.terms)
}

// replace persists terms and swaps them in. The in-memory list is left
// unchanged when the write fails. Callers hold h.mu.
func (h *History) replace(terms []string) error {
	data, err := json.Marshal(terms)
	if err != nil {
		return fmt.Errorf("encoding search history: %w", err)
	}
	if err := h.kv.Set(StorageKey, string(data)); err != nil {
		return fmt.Errorf("saving search history: %w", err)
	}
	h.terms = terms
	return nil
}

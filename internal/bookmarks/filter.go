package bookmarks

import (
	"strings"

	"github.com/lepinkainen/readtube/internal/catalog"
	"github.com/sahilm/fuzzy"
)

// FilterResult is a saved book that matched a filter query.
type FilterResult struct {
	Book           catalog.Book
	MatchedIndexes []int
	Score          int
}

// bookTitles implements fuzzy.Source over saved book titles.
type bookTitles []catalog.Book

func (bt bookTitles) String(i int) string {
	return bt[i].Title
}

func (bt bookTitles) Len() int {
	return len(bt)
}

// Filter fuzzy-matches query against saved titles, best match first.
// A blank query returns every saved book in insertion order.
func (s *Store) Filter(query string) []FilterResult {
	books := bookTitles(s.List())

	query = strings.TrimSpace(query)
	if query == "" {
		results := make([]FilterResult, len(books))
		for i, b := range books {
			results[i] = FilterResult{Book: b}
		}
		return results
	}

	matches := fuzzy.FindFrom(query, books)
	results := make([]FilterResult, len(matches))
	for i, m := range matches {
		results[i] = FilterResult{
			Book:           books[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}
	return results
}

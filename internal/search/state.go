package search

import (
	"slices"

	"github.com/lepinkainen/readtube/internal/catalog"
)

// Status is the controller's current activity.
type Status int

const (
	StatusIdle Status = iota
	StatusSuggesting
	StatusSearching
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusSuggesting:
		return "suggesting"
	case StatusSearching:
		return "searching"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// State is a snapshot of the search bar.
type State struct {
	Query       string
	Genre       string
	Suggestions []catalog.Book
	Results     []catalog.Book
	Status      Status
	Err         string
}

func (s State) clone() State {
	s.Suggestions = slices.Clone(s.Suggestions)
	s.Results = slices.Clone(s.Results)
	return s
}

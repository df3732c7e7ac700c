package catalog

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// Placeholder values used when the catalog omits a field.
const (
	UnknownAuthor        = "Unknown Author"
	Uncategorized        = "Uncategorized"
	PlaceholderCover     = "https://via.placeholder.com/150"
	NoDescription        = "No description available."
	UnknownPublishedDate = "Unknown"
)

// AllGenres disables the subject constraint on a query.
const AllGenres = "All"

// Book is the normalized record shown to the user. It is built fresh from each
// response and never mutated afterwards.
type Book struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Author        string  `json:"author"`
	Genre         string  `json:"genre"`
	Cover         string  `json:"cover"`
	InfoLink      string  `json:"infoLink,omitempty"`
	Description   string  `json:"description"`
	IsFree        bool    `json:"isFree"`
	Rating        float64 `json:"rating"`
	RatingsCount  int     `json:"ratingsCount"`
	PublishedDate string  `json:"publishedDate"`
}

// Stars renders the rating as five filled/empty stars, rounding to the
// nearest whole star.
func (b Book) Stars() string {
	filled := int(math.Round(b.Rating))
	filled = max(0, min(5, filled))
	return strings.Repeat("★", filled) + strings.Repeat("☆", 5-filled)
}

// RatingLabel formats the rating for display, e.g. "(4.2) - 118 ratings".
func (b Book) RatingLabel() string {
	if b.Rating == 0 {
		return "No ratings"
	}
	return fmt.Sprintf("(%.1f) - %d ratings", b.Rating, b.RatingsCount)
}

// Order is the catalog sort order.
type Order string

const (
	OrderRelevance Order = "relevance"
	OrderNewest    Order = "newest"
)

// Query describes a single catalog request.
type Query struct {
	Text  string
	Genre string // empty or AllGenres means no subject filter
	Limit int
	Page  int // zero-based
	Order Order
}

// StartIndex is the offset of the first requested item.
func (q Query) StartIndex() int {
	return q.Page * q.Limit
}

// Terms returns the q parameter value: the trimmed text plus an optional
// subject filter.
func (q Query) Terms() string {
	terms := strings.TrimSpace(q.Text)
	if terms == "" {
		return ""
	}
	if genre := strings.TrimSpace(q.Genre); genre != "" && genre != AllGenres {
		terms += " subject:" + genre
	}
	return terms
}

// CacheKey normalizes the query into a stable cache key.
func (q Query) CacheKey() string {
	order := q.Order
	if order == "" {
		order = OrderRelevance
	}
	return fmt.Sprintf("%s|%s|%d|%d", strings.ToLower(q.Terms()), order, q.Limit, q.Page)
}

// Searcher runs catalog queries. Client and CachedSearcher implement it.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Book, error)
}

// volumesResponse is the subset of the /volumes payload readtube reads.
type volumesResponse struct {
	TotalItems int          `json:"totalItems"`
	Items      []volumeItem `json:"items"`
}

type volumeItem struct {
	ID         string     `json:"id"`
	VolumeInfo volumeInfo `json:"volumeInfo"`
	SaleInfo   *saleInfo  `json:"saleInfo,omitempty"`
}

type volumeInfo struct {
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Categories    []string `json:"categories"`
	Description   string   `json:"description"`
	PublishedDate string   `json:"publishedDate"`
	InfoLink      string   `json:"infoLink"`
	AverageRating float64  `json:"averageRating"`
	RatingsCount  int      `json:"ratingsCount"`
	ImageLinks    *struct {
		Thumbnail string `json:"thumbnail"`
	} `json:"imageLinks,omitempty"`
}

type saleInfo struct {
	Saleability string `json:"saleability"`
	IsEbook     bool   `json:"isEbook"`
}

package catalog

import (
	"fmt"
	"net/url"
)

const previewBaseURL = "https://books.google.com/books"

// PreviewURL returns the embeddable viewer URL for a book. The URL is never
// fetched or validated here.
func PreviewURL(id string) string {
	return fmt.Sprintf("%s?id=%s&lpg=PP1&pg=PP1&output=embed", previewBaseURL, url.QueryEscape(id))
}

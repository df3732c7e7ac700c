package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lepinkainen/readtube/internal/errors"
)

// Search runs q against the volumes endpoint. Blank text returns no books
// without touching the network. At most q.Limit books are returned and
// duplicate IDs are dropped, keeping the first occurrence.
func (c *Client) Search(ctx context.Context, q Query) ([]Book, error) {
	if q.Terms() == "" {
		return nil, nil
	}

	endpoint := c.buildSearchURL(q)

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, errors.NewFetchFailedError(0, err)
	}

	slog.Debug("Searching catalog", "query", q.Terms(), "order", q.Order, "limit", q.Limit, "page", q.Page, "limiter", c.rateLimiter.Name())

	var resp volumesResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		slog.Debug("Catalog request failed", "query", q.Terms(), "error", err)
		return nil, err
	}

	books := mapItems(resp.Items, q.Limit)
	slog.Debug("Catalog search complete", "query", q.Terms(), "results", len(books), "total", resp.TotalItems)
	return books, nil
}

func (c *Client) buildSearchURL(q Query) string {
	order := q.Order
	if order == "" {
		order = OrderRelevance
	}

	params := url.Values{}
	params.Set("q", q.Terms())
	params.Set("orderBy", string(order))
	if q.Limit > 0 {
		params.Set("maxResults", strconv.Itoa(q.Limit))
	}
	params.Set("startIndex", strconv.Itoa(q.StartIndex()))
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	return fmt.Sprintf("%s/volumes?%s", c.baseURL, params.Encode())
}

func (c *Client) getJSON(ctx context.Context, endpoint string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.NewFetchFailedError(0, fmt.Errorf("building request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NewFetchFailedError(0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return errors.NewFetchFailedError(resp.StatusCode,
			errors.NewRateLimitError("catalog rate limit exceeded", parseRetryAfter(resp.Header.Get("Retry-After"))))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return errors.NewFetchFailedError(resp.StatusCode,
			fmt.Errorf("unexpected status: %s", strings.TrimSpace(string(body))))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return errors.NewFetchFailedError(resp.StatusCode, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// mapItems converts raw items into books, dropping duplicates and stopping at
// limit (when positive).
func mapItems(items []volumeItem, limit int) []Book {
	books := make([]Book, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if limit > 0 && len(books) >= limit {
			break
		}
		if item.ID != "" && seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		books = append(books, mapItem(item))
	}
	return books
}

func mapItem(item volumeItem) Book {
	info := item.VolumeInfo

	book := Book{
		ID:            item.ID,
		Title:         info.Title,
		Author:        UnknownAuthor,
		Genre:         Uncategorized,
		Cover:         PlaceholderCover,
		InfoLink:      info.InfoLink,
		Description:   NoDescription,
		Rating:        info.AverageRating,
		RatingsCount:  info.RatingsCount,
		PublishedDate: UnknownPublishedDate,
	}

	if len(info.Authors) > 0 && info.Authors[0] != "" {
		book.Author = info.Authors[0]
	}
	if len(info.Categories) > 0 && info.Categories[0] != "" {
		book.Genre = info.Categories[0]
	}
	if info.ImageLinks != nil && info.ImageLinks.Thumbnail != "" {
		book.Cover = info.ImageLinks.Thumbnail
	}
	if info.Description != "" {
		book.Description = info.Description
	}
	if info.PublishedDate != "" {
		book.PublishedDate = info.PublishedDate
	}
	if item.SaleInfo != nil {
		book.IsFree = item.SaleInfo.Saleability == "FREE" || item.SaleInfo.IsEbook
	}

	return book
}

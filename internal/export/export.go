// Package export writes saved books out as markdown notes with downloaded
// cover images.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/lepinkainen/readtube/internal/catalog"
)

const defaultMaxCoverWidth = 600

// HTTPDoer is an interface for making HTTP requests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Exporter writes notes into a directory.
type Exporter struct {
	dir        string
	httpClient HTTPDoer
	maxWidth   int
	overwrite  bool
	covers     bool
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithHTTPClient sets the client used to download covers.
func WithHTTPClient(c HTTPDoer) Option {
	return func(e *Exporter) {
		if c != nil {
			e.httpClient = c
		}
	}
}

// WithOverwrite replaces notes that already exist.
func WithOverwrite(overwrite bool) Option {
	return func(e *Exporter) {
		e.overwrite = overwrite
	}
}

// WithCovers toggles cover downloads. Without covers the frontmatter keeps
// the remote cover URL.
func WithCovers(enabled bool) Option {
	return func(e *Exporter) {
		e.covers = enabled
	}
}

// WithMaxCoverWidth caps the width of saved covers.
func WithMaxCoverWidth(width int) Option {
	return func(e *Exporter) {
		if width > 0 {
			e.maxWidth = width
		}
	}
}

// NewExporter creates an exporter writing into dir.
func NewExporter(dir string, opts ...Option) *Exporter {
	e := &Exporter{
		dir:        dir,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		maxWidth:   defaultMaxCoverWidth,
		covers:     true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result summarizes an export run.
type Result struct {
	Written        int
	Skipped        int
	CoverFallbacks int
}

// ProgressFunc looks up reading progress for a book ID.
type ProgressFunc func(id string) (int, bool)

// Export writes one note per book. Existing notes are skipped unless the
// exporter overwrites. A cover that cannot be downloaded falls back to the
// placeholder image.
func (e *Exporter) Export(ctx context.Context, books []catalog.Book, progress ProgressFunc) (Result, error) {
	var result Result

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return result, fmt.Errorf("failed to create export directory: %w", err)
	}

	names := noteNames(books)
	for i, book := range books {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		notePath := filepath.Join(e.dir, names[i]+".md")
		if fileExists(notePath) && !e.overwrite {
			slog.Info("Note already exists, skipping", "title", book.Title, "path", notePath)
			result.Skipped++
			continue
		}

		cover := e.resolveCover(ctx, book, names[i], &result)

		pct := 0
		if progress != nil {
			if p, ok := progress(book.ID); ok {
				pct = p
			}
		}

		content, err := buildNote(book, cover, pct)
		if err != nil {
			return result, fmt.Errorf("building note for %q: %w", book.Title, err)
		}
		if err := os.WriteFile(notePath, content, 0o644); err != nil {
			return result, fmt.Errorf("writing note for %q: %w", book.Title, err)
		}

		slog.Debug("Exported note", "title", book.Title, "path", notePath, "cover", cover)
		result.Written++
	}

	slog.Info("Export complete", "dir", e.dir, "written", result.Written, "skipped", result.Skipped, "cover_fallbacks", result.CoverFallbacks)
	return result, nil
}

// noteNames picks a file name per book. Titles shared by several books in
// the batch get the book ID appended so editions never overwrite each other.
func noteNames(books []catalog.Book) []string {
	counts := make(map[string]int, len(books))
	for _, b := range books {
		counts[strings.ToLower(SanitizeFilename(b.Title))]++
	}

	names := make([]string, len(books))
	for i, b := range books {
		name := SanitizeFilename(b.Title)
		if counts[strings.ToLower(name)] > 1 {
			name = fmt.Sprintf("%s (%s)", name, SanitizeFilename(b.ID))
		}
		names[i] = name
	}
	return names
}

func (e *Exporter) resolveCover(ctx context.Context, book catalog.Book, name string, result *Result) string {
	if book.Cover == "" || book.Cover == catalog.PlaceholderCover {
		return catalog.PlaceholderCover
	}
	if !e.covers {
		return book.Cover
	}

	filename := name + " - cover.jpg"
	relPath := filepath.ToSlash(filepath.Join("attachments", filename))
	savePath := filepath.Join(e.dir, "attachments", filename)

	if fileExists(savePath) && !e.overwrite {
		return relPath
	}

	if err := e.downloadAndResize(ctx, book.Cover, savePath); err != nil {
		slog.Warn("Cover download failed, using placeholder", "title", book.Title, "url", book.Cover, "error", err)
		result.CoverFallbacks++
		return catalog.PlaceholderCover
	}
	return relPath
}

func (e *Exporter) downloadAndResize(ctx context.Context, imageURL, savePath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return err
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d downloading image", resp.StatusCode)
	}

	img, err := imaging.Decode(resp.Body, imaging.AutoOrientation(true))
	if err != nil {
		return err
	}

	if img.Bounds().Dx() > e.maxWidth {
		img = imaging.Resize(img, e.maxWidth, 0, imaging.Lanczos)
	}

	if err := os.MkdirAll(filepath.Dir(savePath), 0o755); err != nil {
		return err
	}

	return imaging.Save(img, savePath, imaging.JPEGQuality(85))
}

// SanitizeFilename replaces characters that are unsafe in file names.
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Untitled"
	}
	name = strings.ReplaceAll(name, ":", " -")
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ReplaceAll(name, "\\", "-")
	return name
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

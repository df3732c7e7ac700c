package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/lepinkainen/readtube/internal/catalog"
	"gopkg.in/yaml.v3"
)

// frontmatter is the YAML header of an exported note. Field order is the
// serialization order.
type frontmatter struct {
	Title        string   `yaml:"title"`
	Author       string   `yaml:"author"`
	Genre        string   `yaml:"genre"`
	Published    string   `yaml:"published"`
	Rating       float64  `yaml:"rating,omitempty"`
	RatingsCount int      `yaml:"ratings_count,omitempty"`
	Free         bool     `yaml:"free"`
	Progress     int      `yaml:"progress,omitempty"`
	Cover        string   `yaml:"cover"`
	InfoLink     string   `yaml:"info_link,omitempty"`
	Preview      string   `yaml:"preview"`
	GoogleID     string   `yaml:"google_books_id"`
	Tags         []string `yaml:"tags,flow"`
}

// buildNote renders a saved book as markdown with YAML frontmatter.
// cover is either a relative attachment path or the placeholder URL.
func buildNote(book catalog.Book, cover string, progress int) ([]byte, error) {
	fm := frontmatter{
		Title:        book.Title,
		Author:       book.Author,
		Genre:        book.Genre,
		Published:    book.PublishedDate,
		Rating:       book.Rating,
		RatingsCount: book.RatingsCount,
		Free:         book.IsFree,
		Progress:     progress,
		Cover:        cover,
		InfoLink:     book.InfoLink,
		Preview:      catalog.PreviewURL(book.ID),
		GoogleID:     book.ID,
		Tags:         noteTags(book),
	}

	header, err := yaml.Marshal(&fm)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal frontmatter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(header)
	buf.WriteString("---\n\n")

	fmt.Fprintf(&buf, "# %s\n\n", book.Title)
	if strings.HasPrefix(cover, "attachments/") {
		fmt.Fprintf(&buf, "![[%s|250]]\n\n", strings.TrimPrefix(cover, "attachments/"))
	}
	fmt.Fprintf(&buf, "%s %s\n\n", book.Stars(), book.RatingLabel())
	buf.WriteString("## Description\n\n")
	buf.WriteString(strings.TrimSpace(book.Description))
	buf.WriteString("\n")

	return buf.Bytes(), nil
}

func noteTags(book catalog.Book) []string {
	tags := []string{"readtube/saved"}
	if book.Genre != "" && book.Genre != catalog.Uncategorized {
		tags = append(tags, "genre/"+tagify(book.Genre))
	}
	if book.IsFree {
		tags = append(tags, "readtube/free")
	}
	return tags
}

func tagify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "-", "/", "-", "&", "and", ",", "").Replace(s)
	return s
}

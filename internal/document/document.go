// Package document defines the corpus record every index is built from and
// the loaders that extract records from text, Markdown and HTML files.
package document

import (
	"strings"
)

// Document is one corpus entry. ID is the position in the loaded corpus and
// stays stable for the lifetime of the process.
type Document struct {
	ID        int     `json:"id"`
	Title     string  `json:"title"`
	Author    string  `json:"author"`
	Content   string  `json:"content"`
	SourceRef string  `json:"file_path"`
	Sections  Section `json:"-"`
}

// Field selects which part of a document an index covers.
type Field string

const (
	FieldFullText Field = "fulltext"
	FieldTitle    Field = "title"
	FieldAuthor   Field = "author"
)

// Fields lists every indexed field.
var Fields = []Field{FieldFullText, FieldTitle, FieldAuthor}

// ParseField maps a request value onto a Field. The empty string selects
// the full text.
func ParseField(s string) (Field, bool) {
	switch Field(strings.ToLower(strings.TrimSpace(s))) {
	case "", FieldFullText:
		return FieldFullText, true
	case FieldTitle:
		return FieldTitle, true
	case FieldAuthor:
		return FieldAuthor, true
	default:
		return "", false
	}
}

// Text returns the text indexed under f.
func (d Document) Text(f Field) string {
	switch f {
	case FieldTitle:
		return d.Title
	case FieldAuthor:
		return d.Author
	default:
		return d.FullText()
	}
}

// FullText joins title, author and content.
func (d Document) FullText() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{d.Title, d.Author, d.Content} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Links returns, for every titled document, the titles of the other
// documents whose titles occur in its content (case-insensitive). Targets
// keep corpus order and each appears once. Documents with no outgoing
// links are omitted.
func Links(docs []Document) map[string][]string {
	out := make(map[string][]string)
	for _, src := range docs {
		if src.Title == "" {
			continue
		}
		content := strings.ToLower(src.Content)
		seen := make(map[string]struct{})
		for _, dst := range docs {
			if dst.ID == src.ID || dst.Title == "" {
				continue
			}
			if _, dup := seen[dst.Title]; dup {
				continue
			}
			if strings.Contains(content, strings.ToLower(dst.Title)) {
				seen[dst.Title] = struct{}{}
				out[src.Title] = append(out[src.Title], dst.Title)
			}
		}
	}
	return out
}

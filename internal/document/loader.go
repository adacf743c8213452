package document

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Extractor turns the raw bytes of one corpus file into a Document. The
// loader assigns ID and SourceRef.
type Extractor func(data []byte) (Document, error)

var extractors = map[string]Extractor{
	".txt":      ExtractText,
	".md":       ExtractMarkdown,
	".markdown": ExtractMarkdown,
	".html":     ExtractHTML,
	".htm":      ExtractHTML,
}

// Supported reports whether ext (including the dot) has an extractor.
func Supported(ext string) bool {
	_, ok := extractors[strings.ToLower(ext)]
	return ok
}

// LoadDir loads every supported file under dir. See Load.
func LoadDir(ctx context.Context, dir string, extensions []string) ([]Document, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("opening corpus directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus path %s is not a directory", dir)
	}
	docs, err := Load(ctx, os.DirFS(dir), extensions)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		docs[i].SourceRef = filepath.Join(dir, filepath.FromSlash(docs[i].SourceRef))
	}
	return docs, nil
}

// Load walks fsys in lexical order and extracts every file whose extension
// is listed (all supported extensions when the list is empty). Files that
// cannot be read or extracted are logged and skipped; ids are assigned to
// the surviving documents in walk order starting at zero.
func Load(ctx context.Context, fsys fs.FS, extensions []string) ([]Document, error) {
	logger := slog.Default().With("component", "corpus-loader")

	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if !Supported(ext) {
			logger.Warn("no extractor for extension, ignoring", "extension", ext)
			continue
		}
		allowed[ext] = struct{}{}
	}

	docs := make([]Document, 0)
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("skipping unreadable path", "path", p, "error", err)
			if d != nil && d.IsDir() && p != "." {
				return fs.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(path.Ext(p))
		extract, ok := extractors[ext]
		if !ok {
			return nil
		}
		if len(allowed) > 0 {
			if _, ok := allowed[ext]; !ok {
				return nil
			}
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			logger.Warn("skipping unreadable file", "path", p, "error", err)
			return nil
		}
		if !utf8.Valid(data) {
			logger.Warn("skipping file with invalid UTF-8", "path", p)
			return nil
		}
		doc, err := extract(data)
		if err != nil {
			logger.Warn("skipping file that failed extraction", "path", p, "error", err)
			return nil
		}
		doc.ID = len(docs)
		doc.SourceRef = p
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking corpus: %w", err)
	}

	logger.Info("corpus loaded", "documents", len(docs))
	return docs, nil
}

// ExtractText reads a plain-text record: the first non-empty line is the
// title, the first following line starting with "Author:" is the author,
// and every other line is content.
func ExtractText(data []byte) (Document, error) {
	var doc Document
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	content := make([]string, 0, len(lines))
	titled, authored := false, false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case !titled && trimmed == "":
			continue
		case !titled:
			doc.Title = trimmed
			titled = true
		case !authored && hasAuthorPrefix(trimmed):
			doc.Author = authorValue(trimmed)
			authored = true
		default:
			content = append(content, line)
		}
	}
	doc.Content = strings.TrimSpace(strings.Join(content, "\n"))
	return doc, nil
}

const authorPrefix = "author:"

func hasAuthorPrefix(s string) bool {
	return len(s) >= len(authorPrefix) && strings.EqualFold(s[:len(authorPrefix)], authorPrefix)
}

func authorValue(s string) string {
	return strings.TrimSpace(s[len(authorPrefix):])
}

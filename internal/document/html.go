package document

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ExtractHTML reads an HTML page. The title comes from <title>, falling
// back to the first <h1>; the author from <meta name="author">. Content is
// the visible body text, one line per block element.
func ExtractHTML(data []byte) (Document, error) {
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return Document{}, fmt.Errorf("parsing html: %w", err)
	}

	var (
		doc     Document
		firstH1 *html.Node
		body    *html.Node
	)
	var scan func(n *html.Node)
	scan = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Title:
				if doc.Title == "" {
					doc.Title = collapse(textContent(n))
				}
				return
			case atom.Meta:
				if strings.EqualFold(attr(n, "name"), "author") && doc.Author == "" {
					doc.Author = strings.TrimSpace(attr(n, "content"))
				}
			case atom.H1:
				if firstH1 == nil {
					firstH1 = n
				}
			case atom.Body:
				body = n
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			scan(c)
		}
	}
	scan(root)

	var skip *html.Node
	if doc.Title == "" && firstH1 != nil {
		doc.Title = collapse(textContent(firstH1))
		skip = firstH1
	}
	if body != nil {
		var b strings.Builder
		writeVisible(&b, body, skip)
		lines := strings.Split(b.String(), "\n")
		kept := lines[:0]
		for _, line := range lines {
			if line = collapse(line); line != "" {
				kept = append(kept, line)
			}
		}
		doc.Content = strings.Join(kept, "\n")
	}
	return doc, nil
}

func writeVisible(b *strings.Builder, n, skip *html.Node) {
	if n == skip {
		return
	}
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Head:
			return
		case atom.Br:
			b.WriteByte('\n')
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeVisible(b, c, skip)
	}
	if n.Type == html.ElementNode && isBlock(n.DataAtom) {
		b.WriteByte('\n')
	}
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Header, atom.Footer,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Li, atom.Ul, atom.Ol, atom.Tr, atom.Table, atom.Blockquote, atom.Pre:
		return true
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

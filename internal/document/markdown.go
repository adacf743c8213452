package document

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// introduction names text that precedes the first heading of its level.
const introduction = "Introduction"

var markdown = goldmark.New()

// ExtractMarkdown reads a Markdown article. The first heading is the
// title and the first paragraph starting with "Author:" is the author.
// Remaining blocks form the content and the section tree: level-1 headings
// open sections, level-2 headings nest under the open level-1 section and
// deeper headings fold into the enclosing section's text.
func ExtractMarkdown(data []byte) (Document, error) {
	root := markdown.Parser().Parse(text.NewReader(data))

	var (
		doc      Document
		titled   bool
		authored bool
		content  []string
		tree     sectionBuilder
	)
	tree.root = &Node{}

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		body := blockText(n, data)
		if body == "" {
			continue
		}
		if h, ok := n.(*ast.Heading); ok {
			if !titled {
				doc.Title = body
				titled = true
				continue
			}
			content = append(content, body)
			switch h.Level {
			case 1:
				tree.openTop(body)
			case 2:
				tree.openSub(body)
			default:
				tree.addText(body)
			}
			continue
		}
		if _, ok := n.(*ast.Paragraph); ok && !authored && hasAuthorPrefix(body) {
			doc.Author = authorValue(body)
			authored = true
			continue
		}
		content = append(content, body)
		tree.addText(body)
	}

	doc.Content = strings.Join(content, "\n")
	if s := tree.finish(); s != nil {
		doc.Sections = s
	}
	return doc, nil
}

// blockText flattens a block and its descendants into single-spaced text.
func blockText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if c.Type() == ast.TypeBlock {
				b.WriteByte(' ')
			}
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.HTMLBlock:
			lines := c.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				b.Write(seg.Value(src))
				b.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(b.String()), " ")
}

type openSection struct {
	name     string
	text     []string
	children *Node
}

func (s *openSection) build() Section {
	body := strings.Join(s.text, "\n")
	if s.children == nil || len(s.children.Children) == 0 {
		return Leaf{Text: body}
	}
	if body == "" {
		return s.children
	}
	node := &Node{}
	node.add(introduction, Leaf{Text: body})
	node.Children = append(node.Children, s.children.Children...)
	return node
}

type sectionBuilder struct {
	root  *Node
	intro []string
	top   *openSection
	sub   *openSection
}

func (b *sectionBuilder) addText(s string) {
	switch {
	case b.sub != nil:
		b.sub.text = append(b.sub.text, s)
	case b.top != nil:
		b.top.text = append(b.top.text, s)
	default:
		b.intro = append(b.intro, s)
	}
}

func (b *sectionBuilder) flushIntro() {
	if len(b.intro) == 0 {
		return
	}
	b.root.add(introduction, Leaf{Text: strings.Join(b.intro, "\n")})
	b.intro = nil
}

func (b *sectionBuilder) closeSub() {
	if b.sub == nil {
		return
	}
	if b.top != nil {
		if b.top.children == nil {
			b.top.children = &Node{}
		}
		b.top.children.add(b.sub.name, b.sub.build())
	} else {
		b.root.add(b.sub.name, b.sub.build())
	}
	b.sub = nil
}

func (b *sectionBuilder) closeTop() {
	b.closeSub()
	if b.top == nil {
		return
	}
	b.root.add(b.top.name, b.top.build())
	b.top = nil
}

func (b *sectionBuilder) openTop(name string) {
	b.closeTop()
	b.flushIntro()
	b.top = &openSection{name: name}
}

func (b *sectionBuilder) openSub(name string) {
	b.closeSub()
	if b.top == nil {
		b.flushIntro()
	}
	b.sub = &openSection{name: name}
}

func (b *sectionBuilder) finish() Section {
	b.closeTop()
	b.flushIntro()
	if len(b.root.Children) == 0 {
		return nil
	}
	return b.root
}

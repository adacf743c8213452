package document

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestExtractText(t *testing.T) {
	doc, err := ExtractText([]byte("\n  Graph Theory\nAuthor: Ada Lovelace\nGraph theory studies networks.\nAbstract follows.\n"))
	if err != nil {
		t.Fatal(err)
	}
	want := Document{
		Title:   "Graph Theory",
		Author:  "Ada Lovelace",
		Content: "Graph theory studies networks.\nAbstract follows.",
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("ExtractText mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractTextWithoutAuthor(t *testing.T) {
	doc, _ := ExtractText([]byte("Title only\nbody line"))
	if doc.Author != "" || doc.Content != "body line" {
		t.Errorf("got %+v", doc)
	}
	empty, _ := ExtractText(nil)
	if diff := cmp.Diff(Document{}, empty); diff != "" {
		t.Errorf("empty input mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractMarkdown(t *testing.T) {
	src := `# Graph Theory

Author: Leonhard Euler

Graphs model *pairwise* relations.

# History

Started with the Königsberg bridges.

## Euler

Solved the bridges problem.

### Detail

Folded into Euler.

## Later work

Many results.

# Applications

Networks everywhere.
`
	doc, err := ExtractMarkdown([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "Graph Theory" || doc.Author != "Leonhard Euler" {
		t.Errorf("title/author = %q/%q", doc.Title, doc.Author)
	}
	if !strings.HasPrefix(doc.Content, "Graphs model pairwise relations.\nHistory\n") {
		t.Errorf("content = %q", doc.Content)
	}

	got, err := json.Marshal(doc.Sections)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"Introduction":"Graphs model pairwise relations.",` +
		`"History":{"Introduction":"Started with the Königsberg bridges.",` +
		`"Euler":"Solved the bridges problem.\nDetail\nFolded into Euler.",` +
		`"Later work":"Many results."},` +
		`"Applications":"Networks everywhere."}`
	if diff := cmp.Diff(want, string(got)); diff != "" {
		t.Errorf("section tree mismatch (-want +got):\n%s", diff)
	}

	node, ok := doc.Sections.(*Node)
	if !ok {
		t.Fatalf("root is %T, want *Node", doc.Sections)
	}
	history, ok := node.Get("History")
	if !ok {
		t.Fatal("History section missing")
	}
	if _, ok := history.(*Node); !ok {
		t.Errorf("History is %T, want *Node", history)
	}
	if _, ok := node.Get("Missing"); ok {
		t.Error("unexpected section")
	}
}

func TestExtractMarkdownWithoutSections(t *testing.T) {
	doc, _ := ExtractMarkdown([]byte("# Only Title\n"))
	if doc.Sections != nil {
		t.Errorf("expected no sections, got %#v", doc.Sections)
	}
}

func TestExtractHTML(t *testing.T) {
	src := `<html><head><title>Database  Systems</title>
<meta name="Author" content=" Edgar Codd ">
<style>body { color: red }</style></head>
<body><h1>Database Systems</h1><p>Databases store <b>records</b> efficiently.</p>
<script>alert(1)</script><ul><li>tables</li><li>indexes</li></ul></body></html>`
	doc, err := ExtractHTML([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	want := Document{
		Title:   "Database Systems",
		Author:  "Edgar Codd",
		Content: "Database Systems\nDatabases store records efficiently.\ntables\nindexes",
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("ExtractHTML mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractHTMLTitleFromHeading(t *testing.T) {
	doc, _ := ExtractHTML([]byte(`<body><h1>Search Engines</h1><p>Crawl, index, rank.</p></body>`))
	if doc.Title != "Search Engines" || doc.Content != "Crawl, index, rank." {
		t.Errorf("got %+v", doc)
	}
}

func TestLoad(t *testing.T) {
	fsys := fstest.MapFS{
		"b.txt":         {Data: []byte("Beta\nbody b")},
		"a.md":          {Data: []byte("# Alpha\n\nbody a")},
		"notes/c.html":  {Data: []byte("<title>Gamma</title><p>body c</p>")},
		"ignored.pdf":   {Data: []byte("%PDF")},
		"bad.txt":       {Data: []byte{0xff, 0xfe, 0xfd}},
		"skipped.html":  {Data: []byte("<title>Skipped</title>")},
		"zeta/empty.md": {Data: []byte("")},
	}
	docs, err := Load(context.Background(), fsys, []string{"txt", ".MD", ".html", ".pdf"})
	if err != nil {
		t.Fatal(err)
	}
	got := make([]string, len(docs))
	for i, d := range docs {
		if d.ID != i {
			t.Errorf("doc %d has id %d", i, d.ID)
		}
		got[i] = d.SourceRef + "=" + d.Title
	}
	want := []string{"a.md=Alpha", "b.txt=Beta", "notes/c.html=Gamma", "skipped.html=Skipped", "zeta/empty.md="}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("loaded documents mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Load(ctx, fstest.MapFS{"a.txt": {Data: []byte("A")}}, nil)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "one.txt"), []byte("One\nAuthor: Me\ntext"), 0o644); err != nil {
		t.Fatal(err)
	}
	docs, err := LoadDir(context.Background(), dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []Document{{ID: 0, Title: "One", Author: "Me", Content: "text", SourceRef: filepath.Join(dir, "one.txt")}}
	if diff := cmp.Diff(want, docs, cmpopts.IgnoreFields(Document{}, "Sections")); diff != "" {
		t.Errorf("LoadDir mismatch (-want +got):\n%s", diff)
	}
	if _, err := LoadDir(context.Background(), filepath.Join(dir, "one.txt"), nil); err == nil {
		t.Error("expected error for non-directory")
	}
}

func TestParseField(t *testing.T) {
	tests := map[string]Field{"": FieldFullText, "Title": FieldTitle, " author ": FieldAuthor, "fulltext": FieldFullText}
	for in, want := range tests {
		got, ok := ParseField(in)
		if !ok || got != want {
			t.Errorf("ParseField(%q) = %q, %v", in, got, ok)
		}
	}
	if _, ok := ParseField("abstract"); ok {
		t.Error("unknown field accepted")
	}
}

func TestTextAndFullText(t *testing.T) {
	d := Document{Title: "Graph Theory", Content: "Graph theory studies networks"}
	if got := d.Text(FieldFullText); got != "Graph Theory Graph theory studies networks" {
		t.Errorf("FullText = %q", got)
	}
	if d.Text(FieldAuthor) != "" || d.Text(FieldTitle) != "Graph Theory" {
		t.Error("field text mismatch")
	}
}

func TestLinks(t *testing.T) {
	docs := []Document{
		{ID: 0, Title: "Graph Theory", Content: "See database systems and Search Engines; database systems again."},
		{ID: 1, Title: "Database Systems", Content: "Nothing relevant."},
		{ID: 2, Title: "Search Engines", Content: "Built on graph theory."},
		{ID: 3, Title: "", Content: "graph theory"},
	}
	want := map[string][]string{
		"Graph Theory":   {"Database Systems", "Search Engines"},
		"Search Engines": {"Graph Theory"},
	}
	if diff := cmp.Diff(want, Links(docs)); diff != "" {
		t.Errorf("Links mismatch (-want +got):\n%s", diff)
	}
}

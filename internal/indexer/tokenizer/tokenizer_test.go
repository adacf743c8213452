package tokenizer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", []string{}},
		{"whitespace only", "  \t\n ", []string{}},
		{"lowercases", "Graph Theory", []string{"graph", "theory"}},
		{"drops stopwords", "The theory of the graph", []string{"theory", "graph"}},
		{"deletes punctuation", "networks, graphs; and trees!", []string{"networks", "graphs", "trees"}},
		{"joins across apostrophes", "don't stop", []string{"dont", "stop"}},
		{"keeps order and duplicates", "graph graph theory", []string{"graph", "graph", "theory"}},
		{"stopword after punctuation removal", "(the) (a)", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.text)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Normalize(%q) mismatch (-want +got):\n%s", tt.text, diff)
			}
		})
	}
}

func TestStemmedAnalyzer(t *testing.T) {
	got := Stemmed.Normalize("Running networks connected")
	want := []string{"run", "network", "connect"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Stemmed.Normalize mismatch (-want +got):\n%s", diff)
	}
	if !Stemmed.Stems() || Plain.Stems() {
		t.Error("Stems() reports the wrong mode")
	}
}

func TestIsStopWord(t *testing.T) {
	for _, w := range []string{"the", "and", "that", "or"} {
		if !IsStopWord(w) {
			t.Errorf("IsStopWord(%q) = false, want true", w)
		}
	}
	if IsStopWord("graph") {
		t.Error(`IsStopWord("graph") = true, want false`)
	}
}

var benchTexts = map[string]string{
	"short": "The quick brown fox jumps over the lazy dog",
	"medium": `Retrieval models rank documents against a query. The vector space
		model weighs terms by frequency, the binary independence model compares
		term sets, and the fuzzy model scores partial membership of every
		document in the set of query terms.`,
	"long": strings.Repeat(`Information retrieval systems normalize text into searchable
		terms by lower-casing, deleting punctuation and dropping stopwords. The
		inverted index maps each term to the documents containing it, and the
		proximity graph links every stemmed term to its documents. `, 20),
}

func BenchmarkNormalize(b *testing.B) {
	for name, text := range benchTexts {
		for _, a := range []struct {
			name string
			a    Analyzer
		}{{"plain", Plain}, {"stemmed", Stemmed}} {
			b.Run(name+"/"+a.name, func(b *testing.B) {
				b.ReportAllocs()
				b.SetBytes(int64(len(text)))
				for i := 0; i < b.N; i++ {
					_ = a.a.Normalize(text)
				}
			})
		}
	}
}

func BenchmarkNormalizeParallel(b *testing.B) {
	text := benchTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = Stemmed.Normalize(text)
		}
	})
}

func BenchmarkNormalizeVaryingSize(b *testing.B) {
	base := "retrieval models ranking documents indexing "
	for _, size := range []int{10, 100, 500, 1000, 5000} {
		text := strings.Repeat(base, size/len(base)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = Plain.Normalize(text)
			}
		})
	}
}

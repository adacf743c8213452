// Package index builds the in-memory inverted index that every ranking
// model reads. An InvertedIndex is constructed once by a Builder and is
// immutable afterwards, so it is safe for concurrent readers without
// locking.
package index

import (
	"math"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/indexer/tokenizer"
)

// maxPhraseLength is the longest run of terms recorded in the term
// frequency table.
const maxPhraseLength = 4

// InvertedIndex maps terms to postings and carries the per-document length
// table and the term/phrase frequency table used for suggestions.
type InvertedIndex struct {
	postings      map[string]*Posting
	vocabulary    []string
	docLengths    []int
	distinctTerms []int
	phraseCounts  map[string]int
	phrases       []Phrase
}

// Builder accumulates documents in order. Document ids are assigned by
// position starting at zero.
type Builder struct {
	analyzer      tokenizer.Analyzer
	postings      map[string]*Posting
	docLengths    []int
	distinctTerms []int
	phraseCounts  map[string]int
}

// NewBuilder returns a Builder normalizing text with analyzer.
func NewBuilder(analyzer tokenizer.Analyzer) *Builder {
	return &Builder{
		analyzer:     analyzer,
		postings:     make(map[string]*Posting),
		phraseCounts: make(map[string]int),
	}
}

// AddDocument indexes text as the next document and returns its id. An
// empty text still consumes an id and is recorded with length zero.
func (b *Builder) AddDocument(text string) int {
	docID := len(b.docLengths)
	words := b.analyzer.Normalize(text)
	b.docLengths = append(b.docLengths, len(words))

	distinct := 0
	for i, word := range words {
		p, exists := b.postings[word]
		if !exists {
			p = &Posting{TermFrequency: make(map[int]int)}
			b.postings[word] = p
		}
		if _, seen := p.TermFrequency[docID]; !seen {
			p.DocIDs = append(p.DocIDs, docID)
			distinct++
		}
		p.TermFrequency[docID]++
		b.phraseCounts[word]++

		for k := 2; k <= maxPhraseLength && i+k <= len(words); k++ {
			b.phraseCounts[strings.Join(words[i:i+k], " ")]++
		}
	}
	b.distinctTerms = append(b.distinctTerms, distinct)
	return docID
}

// Build freezes the accumulated state. The Builder must not be used
// afterwards.
func (b *Builder) Build() *InvertedIndex {
	vocabulary := make([]string, 0, len(b.postings))
	for term := range b.postings {
		vocabulary = append(vocabulary, term)
	}
	sort.Strings(vocabulary)

	phrases := make([]Phrase, 0, len(b.phraseCounts))
	for term, count := range b.phraseCounts {
		phrases = append(phrases, Phrase{Term: term, Count: count})
	}
	sort.Slice(phrases, func(i, j int) bool {
		if phrases[i].Count != phrases[j].Count {
			return phrases[i].Count > phrases[j].Count
		}
		return phrases[i].Term < phrases[j].Term
	})

	return &InvertedIndex{
		postings:      b.postings,
		vocabulary:    vocabulary,
		docLengths:    b.docLengths,
		distinctTerms: b.distinctTerms,
		phraseCounts:  b.phraseCounts,
		phrases:       phrases,
	}
}

// Build indexes texts in order with analyzer.
func Build(analyzer tokenizer.Analyzer, texts []string) *InvertedIndex {
	b := NewBuilder(analyzer)
	for _, text := range texts {
		b.AddDocument(text)
	}
	return b.Build()
}

// NumDocuments is the number of documents indexed, including empty ones.
func (x *InvertedIndex) NumDocuments() int {
	return len(x.docLengths)
}

// Posting returns the posting for term.
func (x *InvertedIndex) Posting(term string) (*Posting, bool) {
	p, ok := x.postings[term]
	return p, ok
}

// Vocabulary returns every indexed term in lexical order. Callers must not
// modify the returned slice.
func (x *InvertedIndex) Vocabulary() []string {
	return x.vocabulary
}

// DocLength is the number of terms in docID, zero for unknown ids.
func (x *InvertedIndex) DocLength(docID int) int {
	if docID < 0 || docID >= len(x.docLengths) {
		return 0
	}
	return x.docLengths[docID]
}

// DistinctTerms is the number of distinct terms in docID.
func (x *InvertedIndex) DistinctTerms(docID int) int {
	if docID < 0 || docID >= len(x.distinctTerms) {
		return 0
	}
	return x.distinctTerms[docID]
}

// PhraseCount is the corpus-wide count of a term or phrase.
func (x *InvertedIndex) PhraseCount(phrase string) int {
	return x.phraseCounts[phrase]
}

// Phrases returns the term frequency table ordered by descending count,
// ties broken lexically. Callers must not modify the returned slice.
func (x *InvertedIndex) Phrases() []Phrase {
	return x.phrases
}

// IDF is ln(N / (1 + df)). Terms absent from the corpus get ln(N). An
// empty corpus yields zero.
func (x *InvertedIndex) IDF(term string) float64 {
	n := x.NumDocuments()
	if n == 0 {
		return 0
	}
	df := 0
	if p, ok := x.postings[term]; ok {
		df = p.DocFrequency()
	}
	return math.Log(float64(n) / float64(1+df))
}

// TF is the length-normalized frequency of term in docID, zero when the
// document is empty.
func (x *InvertedIndex) TF(term string, docID int) float64 {
	length := x.DocLength(docID)
	if length == 0 {
		return 0
	}
	p, ok := x.postings[term]
	if !ok {
		return 0
	}
	return float64(p.TermFrequency[docID]) / float64(length)
}

// TFIDF is TF(term, docID) * IDF(term).
func (x *InvertedIndex) TFIDF(term string, docID int) float64 {
	tf := x.TF(term, docID)
	if tf == 0 {
		return 0
	}
	return tf * x.IDF(term)
}

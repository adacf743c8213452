package index

import "sort"

// Membership holds fuzzy-set membership degrees: for every term, the
// degree of each document containing it, defined as the term's frequency
// in that document divided by its highest frequency in any document.
// Degrees are in (0, 1] and the most frequent document scores exactly 1.
type Membership struct {
	degrees map[string]map[int]float64
	terms   []string
}

// NewMembership derives the membership table from x.
func NewMembership(x *InvertedIndex) *Membership {
	m := &Membership{
		degrees: make(map[string]map[int]float64, len(x.postings)),
		terms:   x.vocabulary,
	}
	for term, p := range x.postings {
		maxTF := 0
		for _, tf := range p.TermFrequency {
			if tf > maxTF {
				maxTF = tf
			}
		}
		if maxTF == 0 {
			continue
		}
		row := make(map[int]float64, len(p.TermFrequency))
		for docID, tf := range p.TermFrequency {
			row[docID] = float64(tf) / float64(maxTF)
		}
		m.degrees[term] = row
	}
	return m
}

// Degrees returns the per-document degrees of term.
func (m *Membership) Degrees(term string) (map[int]float64, bool) {
	row, ok := m.degrees[term]
	return row, ok
}

// Degree is the membership of docID in term, zero when absent.
func (m *Membership) Degree(term string, docID int) float64 {
	return m.degrees[term][docID]
}

// Terms returns every term with a degree row in lexical order.
func (m *Membership) Terms() []string {
	return m.terms
}

// DocIDs returns the documents of a degree row in ascending order.
func DocIDs(row map[int]float64) []int {
	ids := make([]int, 0, len(row))
	for id := range row {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

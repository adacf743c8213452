package index

// Posting records which documents contain a term and how often.
// DocIDs is ascending and free of duplicates; every key of TermFrequency
// appears in DocIDs and vice versa.
type Posting struct {
	DocIDs        []int
	TermFrequency map[int]int
}

// Contains reports whether docID contains the term.
func (p *Posting) Contains(docID int) bool {
	_, ok := p.TermFrequency[docID]
	return ok
}

// DocFrequency is the number of documents containing the term.
func (p *Posting) DocFrequency() int {
	return len(p.DocIDs)
}

// Phrase is an entry of the term frequency table: a single term or a
// space-joined run of up to four terms, with its corpus-wide count.
type Phrase struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

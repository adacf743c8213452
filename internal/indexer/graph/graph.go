// Package graph holds the proximity graph: an undirected bipartite graph
// with one node per document and one node per distinct term, where each
// document is joined to every term drawn from it.
package graph

import (
	"sort"
	"strconv"
)

// Kind tags a node as a document or a term.
type Kind int

const (
	KindDocument Kind = iota
	KindTerm
)

func (k Kind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindTerm:
		return "term"
	default:
		return "unknown"
	}
}

// Node identifies a vertex. Term is set for term nodes and DocID for
// document nodes.
type Node struct {
	Kind  Kind
	Term  string
	DocID int
}

func (n Node) String() string {
	if n.Kind == KindTerm {
		return "term:" + n.Term
	}
	return "doc:" + strconv.Itoa(n.DocID)
}

// DocumentNode returns the node for docID.
func DocumentNode(docID int) Node {
	return Node{Kind: KindDocument, DocID: docID}
}

// TermNode returns the node for term.
func TermNode(term string) Node {
	return Node{Kind: KindTerm, Term: term}
}

// Graph is immutable once built.
type Graph struct {
	adjacency map[Node][]Node
	terms     []string
	documents int
}

// Builder adds documents to a graph under construction.
type Builder struct {
	adjacency map[Node]map[Node]struct{}
	documents int
}

func NewBuilder() *Builder {
	return &Builder{adjacency: make(map[Node]map[Node]struct{})}
}

// AddDocument adds the next document node and connects it to every term.
// A document without terms is still added as an isolated node.
func (b *Builder) AddDocument(terms []string) int {
	docID := b.documents
	b.documents++
	doc := DocumentNode(docID)
	if _, ok := b.adjacency[doc]; !ok {
		b.adjacency[doc] = make(map[Node]struct{})
	}
	for _, term := range terms {
		t := TermNode(term)
		if _, ok := b.adjacency[t]; !ok {
			b.adjacency[t] = make(map[Node]struct{})
		}
		b.adjacency[doc][t] = struct{}{}
		b.adjacency[t][doc] = struct{}{}
	}
	return docID
}

func (b *Builder) Build() *Graph {
	g := &Graph{
		adjacency: make(map[Node][]Node, len(b.adjacency)),
		documents: b.documents,
	}
	for node, set := range b.adjacency {
		neighbors := make([]Node, 0, len(set))
		for n := range set {
			neighbors = append(neighbors, n)
		}
		sortNodes(neighbors)
		g.adjacency[node] = neighbors
		if node.Kind == KindTerm {
			g.terms = append(g.terms, node.Term)
		}
	}
	sort.Strings(g.terms)
	return g
}

// Has reports whether n is a vertex of the graph.
func (g *Graph) Has(n Node) bool {
	_, ok := g.adjacency[n]
	return ok
}

// Neighbors returns the nodes adjacent to n. For a term node these are
// exactly the documents containing the term.
func (g *Graph) Neighbors(n Node) []Node {
	return g.adjacency[n]
}

// TermNodes returns every term in lexical order.
func (g *Graph) TermNodes() []string {
	return g.terms
}

// NumDocuments is the number of document nodes.
func (g *Graph) NumDocuments() int {
	return g.documents
}

// NumEdges counts undirected edges.
func (g *Graph) NumEdges() int {
	total := 0
	for node, neighbors := range g.adjacency {
		if node.Kind == KindDocument {
			total += len(neighbors)
		}
	}
	return total
}

func sortNodes(nodes []Node) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Kind != nodes[j].Kind {
			return nodes[i].Kind < nodes[j].Kind
		}
		if nodes[i].Kind == KindDocument {
			return nodes[i].DocID < nodes[j].DocID
		}
		return nodes[i].Term < nodes[j].Term
	})
}

package ranker

import (
	"context"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/indexer/graph"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/searcher/similarity"
)

// ProximalNodes returns the documents one hop away from each stemmed query
// term and from its closest term nodes in the proximity graph. It decides
// membership only; results are unscored and ordered by document id.
type ProximalNodes struct {
	Cutoff  float64
	TopN    int
	Matcher similarity.Matcher
}

func (ProximalNodes) Model() Model { return ModelProximalNodes }

func (p ProximalNodes) Rank(ctx context.Context, snap *indexer.Snapshot, req Request) ([]Result, error) {
	g := snap.Graph()
	found := make(map[graph.Node]struct{})
	collect := func(term string) {
		for _, n := range g.Neighbors(graph.TermNode(term)) {
			found[n] = struct{}{}
		}
	}

	for _, t := range distinct(tokenizer.Stemmed.Normalize(req.Query)) {
		if g.Has(graph.TermNode(t)) {
			collect(t)
		}
		related, err := p.Matcher.CloseMatches(ctx, t, g.TermNodes(), p.TopN, p.Cutoff)
		if err != nil {
			return nil, err
		}
		for _, m := range related {
			collect(m.Term)
		}
	}

	ids := make([]int, 0, len(found))
	for n := range found {
		if n.Kind == graph.KindDocument {
			ids = append(ids, n.DocID)
		}
	}
	sort.Ints(ids)
	out := make([]Result, len(ids))
	for i, id := range ids {
		out[i] = Result{DocID: id, Rank: i + 1}
	}
	return out, nil
}

package ranker

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/document"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/errors"
)

var twoDocs = []document.Document{
	{ID: 0, Title: "Graph Theory", Content: "Graph theory studies networks"},
	{ID: 1, Title: "Database Systems", Content: "Databases store records efficiently"},
}

var fourDocs = []document.Document{
	{ID: 0, Title: "Graph Theory", Content: "Graph theory studies networks"},
	{ID: 1, Title: "Database Systems", Author: "Edgar Codd", Content: "Databases store records efficiently"},
	{ID: 2, Title: "Search Engines", Content: "Search engines rank documents over networks of links"},
	{ID: 3},
}

func snapshot(t testing.TB, docs []document.Document) *indexer.Snapshot {
	t.Helper()
	snap, err := indexer.NewEngine(config.TracingConfig{}).Build(context.Background(), docs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return snap
}

func run(t *testing.T, s Strategy, snap *indexer.Snapshot, req Request) []Result {
	t.Helper()
	got, err := s.Rank(context.Background(), snap, req)
	if err != nil {
		t.Fatalf("%s Rank(%q): %v", s.Model(), req.Query, err)
	}
	return got
}

var approx = cmpopts.EquateApprox(0, 1e-9)

func ptr(v float64) *float64 { return &v }

func TestVectorSpacePrefixScenario(t *testing.T) {
	snap := snapshot(t, twoDocs)
	got := run(t, VectorSpace{}, snap, Request{Query: "graph"})
	want := []Result{{DocID: 0, Score: 1, Rank: 1, Scored: true}}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestVectorSpacePrefixKeepsNonExactMatches(t *testing.T) {
	snap := snapshot(t, fourDocs)
	got := run(t, VectorSpace{DefaultMatch: MatchPrefix}, snap, Request{Query: "network"})
	want := []Result{
		{DocID: 0, Score: 0, Rank: 1, Scored: true},
		{DocID: 2, Score: 0, Rank: 2, Scored: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestVectorSpaceSubstring(t *testing.T) {
	snap := snapshot(t, fourDocs)
	got := run(t, VectorSpace{}, snap, Request{Query: "graph", Match: MatchSubstring})
	idf := math.Log(4.0 / 2.0)
	want := []Result{{DocID: 0, Score: idf * (2.0 / 6.0) * idf, Rank: 1, Scored: true}}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestVectorSpaceFields(t *testing.T) {
	snap := snapshot(t, fourDocs)
	got := run(t, VectorSpace{}, snap, Request{Query: "codd", Field: document.FieldAuthor})
	if len(got) != 1 || got[0].DocID != 1 {
		t.Errorf("author search = %+v", got)
	}
	got = run(t, VectorSpace{}, snap, Request{Query: "codd", Field: document.FieldTitle})
	if len(got) != 0 {
		t.Errorf("title search = %+v", got)
	}
	_, err := VectorSpace{}.Rank(context.Background(), snap, Request{Query: "codd", Field: "abstract"})
	if !errors.Is(err, apperrors.ErrUnknownField) {
		t.Errorf("err = %v, want ErrUnknownField", err)
	}
}

func TestBinaryIndependence(t *testing.T) {
	snap := snapshot(t, fourDocs)
	got := run(t, BinaryIndependence{}, snap, Request{Query: "Graph networks unknownterm"})
	want := []Result{
		{DocID: 0, Score: 2 * 2.0 / (2 + 4), Rank: 1, Scored: true},
		{DocID: 2, Score: 2 * 1.0 / (2 + 7), Rank: 2, Scored: true},
	}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestDiceSymmetric(t *testing.T) {
	for _, tt := range [][3]int{{0, 0, 0}, {1, 2, 3}, {2, 2, 4}, {3, 5, 3}} {
		if a, b := Dice(tt[0], tt[1], tt[2]), Dice(tt[0], tt[2], tt[1]); a != b {
			t.Errorf("Dice%v not symmetric: %v vs %v", tt, a, b)
		}
	}
	if Dice(0, 0, 0) != 0 {
		t.Error("empty vectors must score 0")
	}
	if Dice(2, 2, 2) != 1 {
		t.Error("identical vectors must score 1")
	}
}

func TestFuzzySetTypoExpansion(t *testing.T) {
	snap := snapshot(t, twoDocs)
	got := run(t, FuzzySet{DefaultThreshold: 0.3}, snap, Request{Query: "datbase"})
	if len(got) == 0 {
		t.Fatal("approximate match did not fire")
	}
	if got[0].DocID != 1 || got[0].Score != 1 {
		t.Errorf("top result = %+v, want doc 1 with score 1", got[0])
	}
}

func TestFuzzySetNormalized(t *testing.T) {
	snap := snapshot(t, fourDocs)
	got := run(t, FuzzySet{DefaultThreshold: 0.3}, snap, Request{Query: "graph networks search search"})
	if len(got) == 0 {
		t.Fatal("no results")
	}
	if got[0].Score != 1 {
		t.Errorf("top score = %v, want 1", got[0].Score)
	}
	for _, r := range got {
		if r.Score < 0 || r.Score > 1 || math.IsNaN(r.Score) {
			t.Errorf("score out of range: %+v", r)
		}
		if r.DocID == 3 {
			t.Error("empty document scored")
		}
	}
}

func TestFuzzySetThreshold(t *testing.T) {
	snap := snapshot(t, fourDocs)
	_, err := FuzzySet{DefaultThreshold: 0.3}.Rank(context.Background(), snap, Request{Query: "graph", Threshold: ptr(1.5)})
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestFuzzySetCountsRepeatedTerms(t *testing.T) {
	snap := snapshot(t, []document.Document{
		{ID: 0, Content: "graph"},
		{ID: 1, Content: "networks"},
	})
	got := run(t, FuzzySet{DefaultThreshold: 0.3}, snap, Request{Query: "graph graph networks"})
	want := []Result{
		{DocID: 0, Score: 1, Rank: 1, Scored: true},
		{DocID: 1, Score: 0.25, Rank: 2, Scored: true},
	}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestFuzzySetExplicitZeroThreshold(t *testing.T) {
	snap := snapshot(t, []document.Document{
		{ID: 0, Content: strings.Repeat("graph ", 10)},
		{ID: 1, Content: "graph other"},
	})
	f := FuzzySet{DefaultThreshold: 0.3}

	defaulted := run(t, f, snap, Request{Query: "graph"})
	if len(defaulted) != 1 {
		t.Fatalf("default threshold kept %d documents, want 1", len(defaulted))
	}

	got := run(t, f, snap, Request{Query: "graph", Threshold: ptr(0)})
	want := []Result{
		{DocID: 0, Score: 1, Rank: 1, Scored: true},
		{DocID: 1, Score: 0.1, Rank: 2, Scored: true},
	}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestFuzzySetCancelled(t *testing.T) {
	snap := snapshot(t, fourDocs)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := FuzzySet{DefaultThreshold: 0.3}.Rank(ctx, snap, Request{Query: "grph"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestProximalNodes(t *testing.T) {
	snap := snapshot(t, fourDocs)
	p := ProximalNodes{Cutoff: 0.6, TopN: 5}

	tests := []struct {
		query string
		want  []int
	}{
		{"graphs", []int{0}},
		{"networking", []int{0, 2}},
		{"Databases", []int{1}},
		{"codd", []int{1}},
		{"zzzz", []int{}},
		{"", []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := run(t, p, snap, Request{Query: tt.query})
			ids := make([]int, 0, len(got))
			for i, r := range got {
				if r.Scored || r.Rank != i+1 {
					t.Errorf("unexpected result shape %+v", r)
				}
				ids = append(ids, r.DocID)
			}
			if diff := cmp.Diff(tt.want, ids); diff != "" {
				t.Errorf("doc ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNonOverlappingLists(t *testing.T) {
	snap := snapshot(t, fourDocs)
	got := run(t, NonOverlappingLists{}, snap, Request{Query: "graph networks"})
	idfGraph, idfNetworks := math.Log(4.0/2.0), math.Log(4.0/3.0)
	want := []Result{
		{DocID: 0, Score: (2.0/6.0)*idfGraph + (1.0/6.0)*idfNetworks, Rank: 1, Scored: true},
		{DocID: 2, Score: (1.0 / 9.0) * idfNetworks, Rank: 2, Scored: true},
	}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyCorpus(t *testing.T) {
	snap := snapshot(t, nil)
	r := NewRegistry(DefaultOptions())
	for _, m := range Models {
		s, err := r.Get(m)
		if err != nil {
			t.Fatal(err)
		}
		for _, q := range []string{"graph", "datbase", ""} {
			if got := run(t, s, snap, Request{Query: q}); len(got) != 0 {
				t.Errorf("%s(%q) on empty corpus = %+v", m, q, got)
			}
		}
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(DefaultOptions())
	for _, m := range Models {
		s, err := r.Get(m)
		if err != nil {
			t.Fatalf("Get(%s): %v", m, err)
		}
		if s.Model() != m {
			t.Errorf("Get(%s) returned %s", m, s.Model())
		}
	}
	if _, err := r.Get("bm25"); !errors.Is(err, apperrors.ErrUnknownModel) {
		t.Errorf("err = %v, want ErrUnknownModel", err)
	}
}

func TestParse(t *testing.T) {
	if m, err := ParseModel(" Fuzzy "); err != nil || m != ModelFuzzySet {
		t.Errorf("ParseModel = %q, %v", m, err)
	}
	if _, err := ParseModel("lsi"); !errors.Is(err, apperrors.ErrUnknownModel) {
		t.Errorf("err = %v", err)
	}
	if p, err := ParseMatchPolicy(""); err != nil || p != "" {
		t.Errorf("ParseMatchPolicy(\"\") = %q, %v", p, err)
	}
	if _, err := ParseMatchPolicy("regex"); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("err = %v", err)
	}
}

func TestTieBreakByDocID(t *testing.T) {
	docs := []document.Document{
		{ID: 0, Content: "alpha beta"},
		{ID: 1, Content: "alpha beta"},
		{ID: 2, Content: "gamma"},
	}
	snap := snapshot(t, docs)
	for _, m := range []Strategy{VectorSpace{}, BinaryIndependence{}, FuzzySet{DefaultThreshold: 0.3}} {
		got := run(t, m, snap, Request{Query: "alpha"})
		if len(got) != 2 || got[0].DocID != 0 || got[1].DocID != 1 {
			t.Errorf("%s tie order = %+v", m.Model(), got)
		}
	}
}

func BenchmarkRank(b *testing.B) {
	docs := make([]document.Document, 500)
	for i := range docs {
		docs[i] = document.Document{ID: i, Title: "Graph Theory", Content: "graph networks databases search engines ranking retrieval models"}
	}
	snap := snapshot(b, docs)
	r := NewRegistry(DefaultOptions())
	ctx := context.Background()
	for _, m := range Models {
		s, _ := r.Get(m)
		b.Run(string(m), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_, _ = s.Rank(ctx, snap, Request{Query: "graph netwrks"})
			}
		})
	}
}

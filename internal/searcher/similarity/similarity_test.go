package similarity

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1},
		{"graph", "graph", 1},
		{"graph", "", 0},
		{"datbase", "database", 7.0 / 8.0},
		{"abc", "xyz", 0},
		{"café", "cafe", 0.75},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", tt.a, tt.b), func(t *testing.T) {
			got := Ratio(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Ratio(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if rev := Ratio(tt.b, tt.a); math.Abs(rev-got) > 1e-12 {
				t.Errorf("Ratio is not symmetric: %v vs %v", got, rev)
			}
		})
	}
}

func TestMatches(t *testing.T) {
	vocab := []string{"database", "databases", "data", "graph", "datum"}
	got, err := Matcher{}.Matches(context.Background(), "datbase", vocab, 0.6)
	if err != nil {
		t.Fatal(err)
	}
	want := []Match{
		{Term: "database", Score: 7.0 / 8.0},
		{Term: "databases", Score: 7.0 / 9.0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Matches mismatch (-want +got):\n%s", diff)
	}
}

func TestCloseMatchesLimitsAndOrders(t *testing.T) {
	vocab := []string{"grape", "graph", "graphs", "grapple", "gravel", "grab", "tree"}
	got, err := Matcher{}.CloseMatches(context.Background(), "graph", vocab, 3, 0.6)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"graph", "graphs", "grape"}, terms(got)); diff != "" {
		t.Errorf("CloseMatches mismatch (-want +got):\n%s", diff)
	}
	none, _ := Matcher{}.CloseMatches(context.Background(), "graph", vocab, 0, 0.6)
	if len(none) != 0 {
		t.Errorf("n=0 returned %v", none)
	}
}

func TestMatcherLimit(t *testing.T) {
	vocab := []string{"zzzz", "graph"}
	got, _ := Matcher{Limit: 1}.Matches(context.Background(), "graph", vocab, 0.5)
	if len(got) != 0 {
		t.Errorf("limit ignored: %v", got)
	}
}

func TestMatcherLimitCoversWholeVocabulary(t *testing.T) {
	vocab := make([]string, 100)
	for i := range vocab {
		vocab[i] = fmt.Sprintf("a%04d", i)
	}
	vocab[90] = "zebra"

	got, err := Matcher{Limit: 10}.Matches(context.Background(), "zebra", vocab, 0.9)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"zebra"}, terms(got)); diff != "" {
		t.Errorf("capped scan missed the tail (-want +got):\n%s", diff)
	}
}

func TestMatcherLimitSkipsLengthPruned(t *testing.T) {
	vocab := []string{"a", "b", "c", "graph"}
	got, _ := Matcher{Limit: 1}.Matches(context.Background(), "graph", vocab, 0.5)
	if diff := cmp.Diff([]string{"graph"}, terms(got)); diff != "" {
		t.Errorf("pruned candidates counted against the limit (-want +got):\n%s", diff)
	}
}

func TestMatchesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Matcher{}.Matches(ctx, "graph", []string{"graph"}, 0.5)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestUpperBoundNeverPrunesAMatch(t *testing.T) {
	words := []string{"a", "ab", "abc", "graph", "graphs", "database", "datbase", ""}
	for _, a := range words {
		for _, b := range words {
			if r := Ratio(a, b); r > upperBound(len(a), len(b))+1e-12 {
				t.Errorf("ratio(%q,%q)=%v exceeds bound %v", a, b, r, upperBound(len(a), len(b)))
			}
		}
	}
}

func BenchmarkMatches(b *testing.B) {
	vocab := make([]string, 5000)
	for i := range vocab {
		vocab[i] = fmt.Sprintf("term%05d", i)
	}
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Matcher{}.Matches(ctx, "term01234", vocab, 0.6)
	}
}

func terms(matches []Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Term
	}
	return out
}

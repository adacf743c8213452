package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/kafka"
)

func TestAggregatorStats(t *testing.T) {
	a := NewAggregator()
	a.Track(Event{Type: EventSearch, Query: "Graph", Model: "vector", TotalHits: 2, LatencyMs: 1})
	a.Track(Event{Type: EventSearch, Query: "graph ", Model: "bim", TotalHits: 1, LatencyMs: 3, CacheHit: true})
	a.Track(Event{Type: EventZeroResult, Query: "zzz", Model: "vector", LatencyMs: 2})
	a.Track(Event{Type: EventSuggest, Query: "gr"})
	a.Track(Event{Type: EventFeedback, DocID: "0", Relevance: "relevant"})
	a.Track(Event{Type: EventEvaluate, Query: "graph", F1: 1})

	s := a.Stats()
	if s.TotalSearches != 3 || s.CacheHits != 1 || s.CacheMisses != 2 || s.ZeroResultCount != 1 {
		t.Errorf("counters = %+v", s)
	}
	if s.Suggestions != 1 || s.FeedbackRecorded != 1 || s.Evaluations != 1 {
		t.Errorf("side counters = %+v", s)
	}
	if diff := cmp.Diff(map[string]int64{"vector": 2, "bim": 1}, s.SearchesByModel); diff != "" {
		t.Errorf("by model mismatch (-want +got):\n%s", diff)
	}
	wantTop := []QueryCount{{Query: "graph", Count: 2}, {Query: "zzz", Count: 1}}
	if diff := cmp.Diff(wantTop, s.TopQueries); diff != "" {
		t.Errorf("top queries mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]QueryCount{{Query: "zzz", Count: 1}}, s.ZeroResultQueries); diff != "" {
		t.Errorf("zero-result queries mismatch (-want +got):\n%s", diff)
	}
	if s.AvgLatencyMs != 2 || s.P50LatencyMs != 2 || s.P99LatencyMs != 3 {
		t.Errorf("latency stats = %+v", s)
	}
}

func TestAggregatorLatencyRingIsBounded(t *testing.T) {
	a := NewAggregator()
	for i := 0; i < maxLatencySamples+10; i++ {
		a.Track(Event{Type: EventSearch, Query: "q", LatencyMs: 1})
	}
	if len(a.latencies) != maxLatencySamples {
		t.Errorf("kept %d samples", len(a.latencies))
	}
}

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	fail    error
}

func (f *fakePublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.batches = append(f.batches, events)
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func TestBatchCollectorFlushesOnShutdown(t *testing.T) {
	pub := &fakePublisher{}
	bc := NewBatchCollector(pub, 100, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	bc.Start(ctx)

	bc.Track(Event{Type: EventSearch, Query: "graph"})
	bc.Track(Event{Type: EventFeedback, DocID: "1"})
	cancel()
	bc.Close()

	if pub.count() != 2 {
		t.Fatalf("published %d events, want 2", pub.count())
	}
	if got := pub.batches[0][0].Key; got != string(EventSearch) {
		t.Errorf("key = %q", got)
	}
}

func TestBatchCollectorRequeuesOnFailure(t *testing.T) {
	pub := &fakePublisher{fail: errors.New("broker down")}
	bc := NewBatchCollector(pub, 2, time.Hour)
	for i := 0; i < 10; i++ {
		bc.buffer = append(bc.buffer, kafka.Event{Key: "search"})
	}
	bc.flush(context.Background())
	if got := bc.BufferLen(); got != 6 {
		t.Errorf("buffer holds %d events, want 6", got)
	}
}

func TestFanout(t *testing.T) {
	a, b := NewAggregator(), NewAggregator()
	Fanout{a, nil, b}.Track(Event{Type: EventSuggest})
	if a.Stats().Suggestions != 1 || b.Stats().Suggestions != 1 {
		t.Error("event not delivered to every tracker")
	}
}

func TestHandlerStats(t *testing.T) {
	a := NewAggregator()
	a.Track(Event{Type: EventSearch, Query: "graph", Model: "vector", TotalHits: 1})
	rec := httptest.NewRecorder()
	NewHandler(a).Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got AggregatedStats
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.TotalSearches != 1 {
		t.Errorf("total_searches = %d", got.TotalSearches)
	}
}

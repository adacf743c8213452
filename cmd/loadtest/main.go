package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/pflag"

	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/searcher/ranker"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Queries     []string
	Models      []ranker.Model
	Limit       int
}

type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
	cacheHits     atomic.Int64
	latenciesMu   sync.Mutex
	latencies     map[ranker.Model][]time.Duration
	statusCodesMu sync.Mutex
	statusCodes   map[int]*atomic.Int64
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make(map[ranker.Model][]time.Duration),
		statusCodes: make(map[int]*atomic.Int64),
	}
}

func (s *Stats) RecordRequest(model ranker.Model, duration time.Duration, statusCode int, cacheHit bool, err error) {
	s.totalRequests.Add(1)
	if err != nil {
		s.errorCount.Add(1)
		return
	}
	if statusCode >= 200 && statusCode < 300 {
		s.successCount.Add(1)
	} else {
		s.errorCount.Add(1)
	}
	if cacheHit {
		s.cacheHits.Add(1)
	}

	s.latenciesMu.Lock()
	s.latencies[model] = append(s.latencies[model], duration)
	s.latenciesMu.Unlock()

	s.statusCodesMu.Lock()
	if _, ok := s.statusCodes[statusCode]; !ok {
		s.statusCodes[statusCode] = &atomic.Int64{}
	}
	s.statusCodes[statusCode].Add(1)
	s.statusCodesMu.Unlock()
}

func main() {
	baseURL := pflag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := pflag.IntP("concurrency", "n", 10, "number of concurrent workers")
	duration := pflag.DurationP("duration", "d", 30*time.Second, "test duration")
	modelList := pflag.StringSlice("models", nil, "models to cycle through (default: every model)")
	limit := pflag.Int("limit", 10, "results requested per query")
	pflag.Parse()

	models := ranker.Models
	if len(*modelList) > 0 {
		models = models[:0:0]
		for _, name := range *modelList {
			m, err := ranker.ParseModel(name)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			models = append(models, m)
		}
	}

	queries := pflag.Args()
	if len(queries) == 0 {
		queries = []string{
			"graph theory",
			"information retrieval",
			"vector space model",
			"boolean query",
			"fuzzy sets",
			"probabilistic ranking",
			"relevance feedback",
			"inverted index",
			"term weighting",
			"document clustering",
			"database systems",
			"neural networks",
		}
	}

	cfg := Config{
		BaseURL:     strings.TrimRight(*baseURL, "/"),
		Concurrency: *concurrency,
		Duration:    *duration,
		Queries:     queries,
		Models:      models,
		Limit:       *limit,
	}

	fmt.Println("=== Retrieval Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Queries:     %d unique\n", len(cfg.Queries))
	fmt.Printf("Models:      %v\n", cfg.Models)
	fmt.Println()

	stats := runLoadTest(cfg)
	printReport(stats, cfg.Duration)
}

func runLoadTest(cfg Config) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	fmt.Print("Running")

	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := workerID; ctx.Err() == nil; i++ {
				query := cfg.Queries[i%len(cfg.Queries)]
				model := cfg.Models[(i/len(cfg.Queries))%len(cfg.Models)]
				v := url.Values{}
				v.Set("query", query)
				v.Set("model", string(model))
				v.Set("limit", fmt.Sprint(cfg.Limit))

				start := time.Now()
				code, hit, err := search(ctx, client, cfg.BaseURL+"/api/v1/search?"+v.Encode())
				if ctx.Err() != nil {
					return
				}
				stats.RecordRequest(model, time.Since(start), code, hit, err)
			}
		}(w)
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	wg.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return stats
}

func search(ctx context.Context, client *http.Client, rawURL string) (int, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, false, err
	}
	defer resp.Body.Close()
	var body struct {
		CacheHit bool `json:"cache_hit"`
	}
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return resp.StatusCode, false, err
		}
	}
	return resp.StatusCode, body.CacheHit, nil
}

func printReport(stats *Stats, duration time.Duration) {
	total := stats.totalRequests.Load()
	success := stats.successCount.Load()
	errors := stats.errorCount.Load()

	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", total)
	fmt.Printf("Successful:      %d\n", success)
	fmt.Printf("Errors:          %d\n", errors)
	if total > 0 {
		fmt.Printf("Error Rate:      %.2f%%\n", float64(errors)/float64(total)*100)
		fmt.Printf("Cache Hit Rate:  %.2f%%\n", float64(stats.cacheHits.Load())/float64(total)*100)
		fmt.Printf("Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}

	stats.latenciesMu.Lock()
	models := make([]ranker.Model, 0, len(stats.latencies))
	for m := range stats.latencies {
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return models[i] < models[j] })
	for _, m := range models {
		latencies := append([]time.Duration(nil), stats.latencies[m]...)
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		printLatency(string(m), latencies)
	}
	stats.latenciesMu.Unlock()

	fmt.Println()
	fmt.Println("=== Status Codes ===")
	stats.statusCodesMu.Lock()
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("  %d: %d\n", code, stats.statusCodes[code].Load())
	}
	stats.statusCodesMu.Unlock()

	if total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		os.Exit(1)
	}
}

func printLatency(model string, latencies []time.Duration) {
	if len(latencies) == 0 {
		return
	}
	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg := sum / time.Duration(len(latencies))

	var sumSquared float64
	for _, l := range latencies {
		diff := float64(l - avg)
		sumSquared += diff * diff
	}
	stddev := time.Duration(math.Sqrt(sumSquared / float64(len(latencies))))

	fmt.Println()
	fmt.Printf("=== Latency: %s (%d requests) ===\n", model, len(latencies))
	fmt.Printf("Min:    %s\n", latencies[0])
	fmt.Printf("Avg:    %s\n", avg)
	fmt.Printf("P50:    %s\n", percentile(latencies, 50))
	fmt.Printf("P95:    %s\n", percentile(latencies, 95))
	fmt.Printf("P99:    %s\n", percentile(latencies, 99))
	fmt.Printf("Max:    %s\n", latencies[len(latencies)-1])
	fmt.Printf("StdDev: %s\n", stddev)
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

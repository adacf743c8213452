// Package cache keeps executed search results in Redis. Entries are CBOR
// encoded and zstd compressed; keys are BLAKE3 digests of the normalized
// query and corpus version.
package cache

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/document"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/resilience"
)

const keyPrefix = "search:"

// Backend is the key/value store behind the cache. *pkgredis.Client
// satisfies it.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	decoder, _ = zstd.NewReader(nil)
)

// Stats reports cache effectiveness since start-up.
type Stats struct {
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
	Errors  int64  `json:"errors"`
	Circuit string `json:"circuit"`
}

type QueryCache struct {
	backend Backend
	ttl     time.Duration
	version string
	breaker *resilience.CircuitBreaker
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
	errors  atomic.Int64
}

// New returns a cache over backend. version identifies the corpus the
// results were computed from and is folded into every key. m may be nil.
func New(backend Backend, cfg config.RedisConfig, version string, m *metrics.Metrics) *QueryCache {
	cbCfg := resilience.CircuitBreakerConfig{FailureThreshold: 5, ResetTimeout: 30 * time.Second}
	if m != nil {
		cbCfg.OnStateChange = func(name string, _, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		}
	}
	return &QueryCache{
		backend: backend,
		ttl:     cfg.CacheTTL,
		version: version,
		breaker: resilience.NewCircuitBreaker("redis-cache", cbCfg),
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Get returns the cached result for q. Backend failures count as misses.
func (c *QueryCache) Get(ctx context.Context, q executor.Query) (*executor.SearchResult, bool) {
	key := c.Key(q)
	var data []byte
	err := c.breaker.Execute(func() error {
		var gerr error
		data, gerr = c.backend.Get(ctx, key)
		if pkgredis.IsNilError(gerr) {
			return nil
		}
		return gerr
	})
	if err != nil {
		c.errors.Add(1)
		c.logger.Warn("cache get failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	if data == nil {
		c.miss()
		return nil, false
	}
	result, err := decode(data)
	if err != nil {
		c.errors.Add(1)
		c.logger.Error("cache decode failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "query", q.Text, "key", key)
	return result, true
}

// Set stores result under q. Failures are logged and dropped.
func (c *QueryCache) Set(ctx context.Context, q executor.Query, result *executor.SearchResult) {
	key := c.Key(q)
	data, err := encode(result)
	if err != nil {
		c.logger.Error("cache encode failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.backend.Set(ctx, key, data, c.ttl)
	})
	if err != nil {
		c.errors.Add(1)
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for q or runs computeFn once per
// key across concurrent callers and caches its result.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	q executor.Query,
	computeFn func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, q); ok {
		return result, true, nil
	}
	key := c.Key(q)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, q, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.SearchResult), false, nil
}

// Invalidate deletes every cached search result.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.backend.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Errors:  c.errors.Load(),
		Circuit: c.breaker.GetState().String(),
	}
}

// Key derives the storage key for q. Queries that differ only in case or
// whitespace share a key.
func (c *QueryCache) Key(q executor.Query) string {
	var b strings.Builder
	b.WriteString(c.version)
	for _, part := range []string{
		string(q.Model),
		string(q.Field),
		string(q.Match),
		formatThreshold(q.Threshold),
		strconv.Itoa(q.Limit),
		strings.Join(strings.Fields(strings.ToLower(q.Text)), " "),
	} {
		b.WriteByte(0)
		b.WriteString(part)
	}
	sum := blake3.Sum256([]byte(b.String()))
	return keyPrefix + hex.EncodeToString(sum[:16])
}

// CorpusVersion fingerprints docs so results cached for one corpus are
// never served for another.
func CorpusVersion(docs []document.Document) string {
	h := blake3.New()
	for _, d := range docs {
		for _, part := range []string{strconv.Itoa(d.ID), d.Title, d.Author, d.Content, d.SourceRef} {
			io.WriteString(h, part)
			h.Write([]byte{0})
		}
	}
	return hex.EncodeToString(h.Sum(nil)[:8])
}

func formatThreshold(t *float64) string {
	if t == nil {
		return ""
	}
	return strconv.FormatFloat(*t, 'g', -1, 64)
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func encode(result *executor.SearchResult) ([]byte, error) {
	raw, err := cbor.Marshal(result)
	if err != nil {
		return nil, err
	}
	return encoder.EncodeAll(raw, make([]byte, 0, len(raw)/2)), nil
}

func decode(data []byte) (*executor.SearchResult, error) {
	raw, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing: %w", err)
	}
	var result executor.SearchResult
	if err := cbor.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decoding: %w", err)
	}
	return &result, nil
}

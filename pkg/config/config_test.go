package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(defaultConfig(), cfg); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
	if cfg.Search.FuzzyThreshold != 0.30 || cfg.Search.SnippetLength != 180 {
		t.Errorf("unexpected search defaults %+v", cfg.Search)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  port: 9000
search:
  defaultModel: fuzzy
  fuzzyThreshold: 0.6
  queryTimeout: 500ms
feedback:
  driver: sqlite
  dsn: file:feedback.db
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9000 || cfg.Search.DefaultModel != "fuzzy" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Search.QueryTimeout != 500*time.Millisecond {
		t.Errorf("QueryTimeout = %v", cfg.Search.QueryTimeout)
	}
	if cfg.Search.SnippetLength != 180 {
		t.Errorf("unset field lost its default: %d", cfg.Search.SnippetLength)
	}
}

func TestLoadJSONWithComments(t *testing.T) {
	path := writeFile(t, "config.jsonc", "{\n"+
		"  // corpus lives next to the binary\n"+
		"  \"corpus\": {\"dir\": \"/srv/docs\"},\n"+
		"  \"search\": {\"suggestionMax\": 8,},\n"+
		"}\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Corpus.Dir != "/srv/docs" || cfg.Search.SuggestionMax != 8 {
		t.Errorf("json config not applied: %+v %+v", cfg.Corpus, cfg.Search)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RM_SERVER_PORT", "7070")
	t.Setenv("RM_KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("RM_REDIS_ENABLED", "true")
	t.Setenv("RM_SEARCH_FUZZY_THRESHOLD", "0.45")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7070 || !cfg.Redis.Enabled || cfg.Search.FuzzyThreshold != 0.45 {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
	if diff := cmp.Diff([]string{"a:9092", "b:9092"}, cfg.Kafka.Brokers); diff != "" {
		t.Errorf("brokers mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"threshold", func(c *Config) { c.Search.FuzzyThreshold = 1.5 }, "fuzzyThreshold"},
		{"cutoff", func(c *Config) { c.Search.ApproximateCutoff = -0.1 }, "approximateCutoff"},
		{"limit", func(c *Config) { c.Search.DefaultLimit = 0 }, "defaultLimit"},
		{"driver", func(c *Config) { c.Feedback.Driver = "mongo" }, "unknown feedback driver"},
		{"dsn", func(c *Config) { c.Feedback.Driver = "postgres" }, "dsn is required"},
		{"path", func(c *Config) { c.Feedback.Path = "" }, "path is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

package redis

import (
	"context"
	"fmt"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/config"
)

func TestIsNilError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrCacheMiss, true},
		{redis.Nil, true},
		{fmt.Errorf("get: %w", ErrCacheMiss), true},
		{fmt.Errorf("dial tcp: connection refused"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := IsNilError(tt.err); got != tt.want {
			t.Errorf("IsNilError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestNewClientUnreachable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(ctx, config.RedisConfig{Addr: "127.0.0.1:1"})
	if err == nil {
		t.Fatal("expected ping failure")
	}
}

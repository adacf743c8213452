package kafka

import (
	"encoding/json"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/config"
)

func TestMessages(t *testing.T) {
	msgs, err := Messages([]Event{
		{Key: "search", Value: map[string]any{"query": "graph", "total_hits": 2}},
		{Key: "feedback", Value: map[string]string{"doc_id": "0"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || string(msgs[0].Key) != "search" {
		t.Fatalf("messages = %+v", msgs)
	}
	var v map[string]any
	if err := json.Unmarshal(msgs[0].Value, &v); err != nil || v["query"] != "graph" {
		t.Errorf("value = %s, %v", msgs[0].Value, err)
	}
}

func TestMessagesRejectsUnencodable(t *testing.T) {
	if _, err := Messages([]Event{{Key: "x", Value: make(chan int)}}); err == nil {
		t.Fatal("expected marshal error")
	}
}

func TestNewProducerDefaults(t *testing.T) {
	p := NewProducer(config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "search-events"})
	defer p.Close()
	if p.writer.Topic != "search-events" || p.writer.BatchSize != 100 {
		t.Errorf("writer = topic %q batch %d", p.writer.Topic, p.writer.BatchSize)
	}
}

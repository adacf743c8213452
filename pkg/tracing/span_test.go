package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestSpanTree(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "search", "trace-1")
	_, child := StartChildSpan(ctx, "search.vector")
	child.SetAttr("total_hits", 2)
	child.End()
	root.End()

	if SpanFromContext(ctx) != root {
		t.Fatal("root not stored in context")
	}
	found := root.Find("search.vector")
	if found == nil || found.TraceID != "trace-1" {
		t.Fatalf("child = %+v", found)
	}
	if root.Find("missing") != nil {
		t.Error("found a span that was never started")
	}

	var buf bytes.Buffer
	root.Log(slog.New(slog.NewTextHandler(&buf, nil)))
	out := buf.String()
	if strings.Count(out, "msg=span") != 2 || !strings.Contains(out, "total_hits=2") {
		t.Errorf("log output:\n%s", out)
	}
}

func TestOrphanChild(t *testing.T) {
	_, span := StartChildSpan(context.Background(), "orphan")
	span.End()
	if span.TraceID != "" || span.Duration < 0 {
		t.Errorf("orphan = %+v", span)
	}
}

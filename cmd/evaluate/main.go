package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/document"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/feedback"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/searcher/evaluator"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/logger"
)

func main() {
	configPath := pflag.StringP("config", "c", "configs/development.yaml", "path to config file")
	corpusDir := pflag.String("corpus", "", "corpus directory (overrides corpus.dir)")
	modelFlag := pflag.StringP("model", "m", "", "model to evaluate (default: every model)")
	fieldFlag := pflag.StringP("field", "f", "fulltext", "field to search: fulltext, title or author")
	asJSON := pflag.Bool("json", false, "print reports as JSON")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: evaluate [flags] [query ...]\n\nWith no queries every judged keyword is evaluated.\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *corpusDir != "" {
		cfg.Corpus.Dir = *corpusDir
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	field, ok := document.ParseField(*fieldFlag)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown field %q\n", *fieldFlag)
		os.Exit(2)
	}
	models := ranker.Models
	if *modelFlag != "" {
		m, err := ranker.ParseModel(*modelFlag)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		models = []ranker.Model{m}
	}
	match, err := ranker.ParseMatchPolicy(cfg.Search.DefaultMatch)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reports, err := run(ctx, cfg, match, models, field, pflag.Args())
	if err != nil {
		slog.Error("evaluation failed", "error", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			os.Exit(1)
		}
		return
	}
	printReports(reports)
}

func run(ctx context.Context, cfg *config.Config, match ranker.MatchPolicy, models []ranker.Model, field document.Field, queries []string) ([]evaluator.Report, error) {
	snap, err := indexer.NewEngine(cfg.Tracing).Load(ctx, cfg.Corpus)
	if err != nil {
		return nil, err
	}

	store, _, err := feedback.OpenStore(ctx, cfg.Feedback)
	if err != nil {
		return nil, err
	}
	svc, err := feedback.NewService(ctx, store, nil)
	if err != nil {
		store.Close()
		return nil, err
	}
	defer svc.Close()

	if len(queries) == 0 {
		for kw := range svc.Snapshot() {
			queries = append(queries, kw)
		}
		sort.Strings(queries)
	}

	registry := ranker.NewRegistry(ranker.Options{
		FuzzyThreshold:    cfg.Search.FuzzyThreshold,
		ApproximateCutoff: cfg.Search.ApproximateCutoff,
		ApproximateTopN:   cfg.Search.ApproximateTopN,
		MaxVocabularyScan: cfg.Search.MaxVocabularyScan,
		DefaultMatch:      match,
	})
	ev := evaluator.New(registry, svc)

	reports := make([]evaluator.Report, 0, len(queries)*len(models))
	for _, q := range queries {
		for _, m := range models {
			rep, err := ev.Evaluate(ctx, snap, q, m, field)
			if err != nil {
				return nil, fmt.Errorf("evaluating %q with %s: %w", q, m, err)
			}
			reports = append(reports, rep)
		}
	}
	return reports, nil
}

func printReports(reports []evaluator.Report) {
	fmt.Println("=== Retrieval Evaluation ===")
	if len(reports) == 0 {
		fmt.Println("No judged queries. Record feedback first.")
		return
	}
	fmt.Printf("%-24s %-10s %9s %9s %9s %5s %5s\n", "Query", "Model", "Precision", "Recall", "F1", "Ret", "Rel")
	for _, r := range reports {
		fmt.Printf("%-24s %-10s %9.3f %9.3f %9.3f %5d %5d\n",
			r.Query, r.Model, r.Precision, r.Recall, r.F1, r.Retrieved, r.Relevant)
	}
}

// Package main provides a one-shot CLI that analyzes a sales dataset and
// prints the per-seller report as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"github.com/atmx/sales-analytics/internal/analytics"
	"github.com/atmx/sales-analytics/internal/generator"
	"github.com/atmx/sales-analytics/internal/model"
	"github.com/atmx/sales-analytics/internal/store"
	"github.com/atmx/sales-analytics/internal/strategy"
)

const usage = `analyze - per-seller sales report

USAGE:
    analyze -data <file.json> [options]
    analyze -generate <records> [options]

OPTIONS:
    -data <path>       Dataset JSON file (sellers, products, purchase_records)
    -generate <n>      Analyze a synthetic dataset with n purchase records
    -seed <n>          Seed for -generate (0 = random)
    -revenue <name>    Revenue strategy (default: simple)
    -bonus <name>      Bonus strategy (default: profit_rank)
    -workers <n>       Parallel accumulation workers (default: 1)
    -summary           Print {rows, summary} instead of rows only
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type output struct {
	Rows    []model.ReportRow   `json:"rows"`
	Summary model.ReportSummary `json:"summary"`
}

// run executes the CLI and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }

	var (
		dataPath string
		generate int
		seed     uint64
		revenue  string
		bonus    string
		workers  int
		summary  bool
	)
	fs.StringVar(&dataPath, "data", "", "dataset JSON file")
	fs.IntVar(&generate, "generate", 0, "synthetic purchase record count")
	fs.Uint64Var(&seed, "seed", 0, "generator seed")
	fs.StringVar(&revenue, "revenue", "", "revenue strategy")
	fs.StringVar(&bonus, "bonus", "", "bonus strategy")
	fs.IntVar(&workers, "workers", 1, "parallel workers")
	fs.BoolVar(&summary, "summary", false, "include totals")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	logger := slog.New(slog.NewJSONHandler(stderr, nil))
	decimal.MarshalJSONWithoutQuotes = true

	if (dataPath == "") == (generate <= 0) {
		fmt.Fprintln(stderr, "exactly one of -data or -generate is required")
		fs.Usage()
		return 2
	}

	ds, err := loadDataset(ctx, dataPath, generate, seed)
	if err != nil {
		logger.Error("load dataset failed", "err", err)
		return 1
	}

	registry := strategy.NewDefaultRegistry()
	rs, err := registry.Revenue(revenue)
	if err != nil {
		logger.Error("resolve strategy failed", "err", err)
		return 2
	}
	bs, err := registry.Bonus(bonus)
	if err != nil {
		logger.Error("resolve strategy failed", "err", err)
		return 2
	}

	rows, err := analytics.AnalyzeParallel(ctx, ds, analytics.Options{Revenue: rs, Bonus: bs}, workers)
	if err != nil {
		logger.Error("analysis failed", "err", err)
		return 1
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	var v any = rows
	if summary {
		v = output{Rows: rows, Summary: analytics.Summarize(rows)}
	}
	if err := enc.Encode(v); err != nil {
		logger.Error("write report failed", "err", err)
		return 1
	}
	return 0
}

func loadDataset(ctx context.Context, path string, records int, seed uint64) (*model.Dataset, error) {
	if path != "" {
		st, err := store.LoadJSONFile(path)
		if err != nil {
			return nil, err
		}
		return store.LoadDataset(ctx, st)
	}

	cfg := generator.DefaultConfig()
	cfg.Records = records
	cfg.Seed = seed
	gen, err := generator.New(cfg)
	if err != nil {
		return nil, err
	}
	return gen.Dataset(), nil
}

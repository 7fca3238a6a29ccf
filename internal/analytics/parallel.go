package analytics

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/atmx/sales-analytics/internal/model"
)

// AnalyzeParallel produces the same rows as Analyze, splitting the
// accumulation pass across workers. Sellers are partitioned by input
// position; every worker scans all purchase records but only mutates the
// accumulators it owns, so no merge step is needed. Indices are shared
// read-only.
//
// The revenue strategy is called from several goroutines and must be pure.
// workers <= 1 runs the sequential path.
func AnalyzeParallel(ctx context.Context, data *model.Dataset, opts Options, workers int) ([]model.ReportRow, error) {
	if workers <= 1 {
		return Analyze(data, opts)
	}
	if err := validate(data, opts); err != nil {
		return nil, err
	}

	idx := buildIndex(data)
	// Lookups are checked once so the reported error matches Analyze.
	if err := checkReferences(data.PurchaseRecords, idx); err != nil {
		return nil, err
	}
	if workers > len(idx.stats) {
		workers = len(idx.stats)
	}

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		part := w
		g.Go(func() error {
			owns := func(st *sellerStat) bool { return st.position%workers == part }
			return accumulateCtx(ctx, data.PurchaseRecords, idx, opts, owns)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return finalize(rank(idx.stats), opts.Bonus), nil
}

// cancelCheckEvery is how many records a worker processes between
// context checks.
const cancelCheckEvery = 1024

func accumulateCtx(ctx context.Context, records []model.PurchaseRecord, idx *index, opts Options, owns func(*sellerStat) bool) error {
	for start := 0; start < len(records); start += cancelCheckEvery {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + cancelCheckEvery
		if end > len(records) {
			end = len(records)
		}
		if err := accumulate(records[start:end], idx, opts.Revenue, owns); err != nil {
			return err
		}
	}
	return nil
}

func checkReferences(records []model.PurchaseRecord, idx *index) error {
	for i, rec := range records {
		if _, ok := idx.sellers[rec.SellerID]; !ok {
			return unknownSeller(i, rec)
		}
		for _, item := range rec.Items {
			if _, ok := idx.products[item.SKU]; !ok {
				return unknownProduct(i, rec, item)
			}
		}
	}
	return nil
}

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/atmx/sales-analytics/internal/model"
)

// MemoryStore implements Store over an in-memory dataset. Used for JSON
// dataset files, testing and development.
type MemoryStore struct {
	mu sync.RWMutex
	ds model.Dataset
}

// NewMemoryStore creates a store holding a copy of ds. A nil ds yields an
// empty store.
func NewMemoryStore(ds *model.Dataset) *MemoryStore {
	s := &MemoryStore{}
	if ds != nil {
		s.ds = copyDataset(ds)
	}
	return s
}

// LoadJSONFile reads a dataset file into a new MemoryStore.
func LoadJSONFile(path string) (*MemoryStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", path, err)
	}
	defer f.Close()

	ds, err := DecodeDataset(f)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	return NewMemoryStore(ds), nil
}

// DecodeDataset decodes one JSON dataset object. Unknown fields are
// ignored so datasets may carry extra reference attributes.
func DecodeDataset(r io.Reader) (*model.Dataset, error) {
	var ds model.Dataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	return &ds, nil
}

// Replace swaps the held dataset.
func (s *MemoryStore) Replace(ds *model.Dataset) {
	cp := copyDataset(ds)
	s.mu.Lock()
	s.ds = cp
	s.mu.Unlock()
}

func (s *MemoryStore) Sellers(_ context.Context) ([]model.Seller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Seller(nil), s.ds.Sellers...), nil
}

func (s *MemoryStore) Products(_ context.Context) ([]model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Product(nil), s.ds.Products...), nil
}

func (s *MemoryStore) PurchaseRecords(_ context.Context) ([]model.PurchaseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyRecords(s.ds.PurchaseRecords), nil
}

// copyDataset deep-copies ds so callers cannot mutate stored state.
func copyDataset(ds *model.Dataset) model.Dataset {
	return model.Dataset{
		Sellers:         append([]model.Seller(nil), ds.Sellers...),
		Products:        append([]model.Product(nil), ds.Products...),
		PurchaseRecords: copyRecords(ds.PurchaseRecords),
	}
}

func copyRecords(in []model.PurchaseRecord) []model.PurchaseRecord {
	if in == nil {
		return nil
	}
	out := make([]model.PurchaseRecord, len(in))
	for i, r := range in {
		r.Items = append([]model.LineItem(nil), r.Items...)
		out[i] = r
	}
	return out
}

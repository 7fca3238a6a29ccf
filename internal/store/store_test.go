package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmx/sales-analytics/internal/model"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func sample() *model.Dataset {
	return &model.Dataset{
		Sellers:  []model.Seller{{ID: "seller_1", FirstName: "Alexey", LastName: "Petrov"}},
		Products: []model.Product{{SKU: "SKU_001", PurchasePrice: d(50)}},
		PurchaseRecords: []model.PurchaseRecord{{
			ReceiptID:   "r1",
			SellerID:    "seller_1",
			TotalAmount: d(180),
			Items:       []model.LineItem{{SKU: "SKU_001", Quantity: 2, SalePrice: d(100), Discount: d(10)}},
		}},
	}
}

// --- MemoryStore ---

func TestMemoryStore_LoadDataset(t *testing.T) {
	st := NewMemoryStore(sample())
	ds, err := LoadDataset(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, sample(), ds)
}

func TestMemoryStore_CopiesOnWriteAndRead(t *testing.T) {
	src := sample()
	st := NewMemoryStore(src)

	src.Sellers[0].FirstName = "mutated"
	src.PurchaseRecords[0].Items[0].SKU = "mutated"

	ctx := context.Background()
	records, err := st.PurchaseRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, "SKU_001", records[0].Items[0].SKU)

	records[0].Items[0].Quantity = 99
	again, _ := st.PurchaseRecords(ctx)
	assert.Equal(t, 2, again[0].Items[0].Quantity)

	sellers, _ := st.Sellers(ctx)
	assert.Equal(t, "Alexey", sellers[0].FirstName)
}

func TestMemoryStore_Replace(t *testing.T) {
	st := NewMemoryStore(nil)
	sellers, err := st.Sellers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sellers)

	st.Replace(sample())
	sellers, _ = st.Sellers(context.Background())
	assert.Len(t, sellers, 1)
}

func TestDecodeDataset_NumbersAndStrings(t *testing.T) {
	body := `{
		"sellers": [{"id": "s1", "first_name": "A", "last_name": "B"}],
		"products": [{"sku": "X", "purchase_price": 35.5, "extra": true}],
		"purchase_records": [{"seller_id": "s1", "total_amount": "53.91",
			"items": [{"sku": "X", "quantity": 1, "sale_price": 59.9, "discount": 10}]}]
	}`
	ds, err := DecodeDataset(strings.NewReader(body))
	require.NoError(t, err)
	assert.True(t, ds.Products[0].PurchasePrice.Equal(d(35.5)))
	assert.True(t, ds.PurchaseRecords[0].TotalAmount.Equal(d(53.91)))
	assert.True(t, ds.PurchaseRecords[0].Items[0].Discount.Equal(d(10)))
}

func TestDecodeDataset_Malformed(t *testing.T) {
	_, err := DecodeDataset(strings.NewReader(`{"sellers": [`))
	assert.Error(t, err)
}

func TestLoadJSONFile(t *testing.T) {
	st, err := LoadJSONFile(filepath.Join("..", "..", "testdata", "dataset.json"))
	require.NoError(t, err)

	ds, err := LoadDataset(context.Background(), st)
	require.NoError(t, err)
	assert.Len(t, ds.Sellers, 4)
	assert.Len(t, ds.Products, 3)
	assert.Len(t, ds.PurchaseRecords, 4)
	assert.Len(t, ds.PurchaseRecords[2].Items, 2)
}

func TestLoadJSONFile_Missing(t *testing.T) {
	_, err := LoadJSONFile(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// --- LoadDataset error wrapping ---

type failingStore struct{ MemoryStore }

var errBoom = errors.New("boom")

func (*failingStore) Products(context.Context) ([]model.Product, error) { return nil, errBoom }

func TestLoadDataset_WrapsErrors(t *testing.T) {
	_, err := LoadDataset(context.Background(), &failingStore{})
	assert.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "load products")
}

// --- Postgres scanning ---

type fakeRows struct {
	data [][]string
	pos  int
	err  error
}

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos <= len(r.data)
}

func (r *fakeRows) Scan(dest ...interface{}) error {
	row := r.data[r.pos-1]
	for i, dst := range dest {
		switch v := dst.(type) {
		case *string:
			*v = row[i]
		case *int:
			n, err := strconv.Atoi(row[i])
			if err != nil {
				return err
			}
			*v = n
		}
	}
	return nil
}

func (r *fakeRows) Err() error { return r.err }

func TestScanRecords(t *testing.T) {
	rows := &fakeRows{data: [][]string{
		{"r1", "2025-01-03", "seller_1", "c1", "180.00", "20.00"},
		{"r2", "2025-01-04", "seller_2", "c2", "142.5", "0"},
	}}
	records, err := scanRecords(rows)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "seller_2", records[1].SellerID)
	assert.True(t, records[0].TotalAmount.Equal(d(180)))
	assert.True(t, records[1].TotalAmount.Equal(d(142.5)))
}

func TestScanRecords_BadNumeric(t *testing.T) {
	rows := &fakeRows{data: [][]string{{"r1", "", "s", "", "NaN?", "0"}}}
	_, err := scanRecords(rows)
	assert.ErrorContains(t, err, "total_amount")
}

func TestScanRecords_RowsErr(t *testing.T) {
	_, err := scanRecords(&fakeRows{err: errBoom})
	assert.ErrorIs(t, err, errBoom)
}

func TestScanItems_AttachesByReceipt(t *testing.T) {
	records := []model.PurchaseRecord{{ReceiptID: "r1"}, {ReceiptID: "r2"}}
	rows := &fakeRows{data: [][]string{
		{"r1", "SKU_001", "2", "100.00", "10"},
		{"r1", "SKU_002", "1", "30", "0"},
		{"r9", "SKU_003", "4", "5", "0"},
		{"r2", "SKU_002", "5", "20", "5.5"},
	}}

	require.NoError(t, scanItems(rows, records))

	require.Len(t, records[0].Items, 2)
	assert.Equal(t, "SKU_001", records[0].Items[0].SKU)
	assert.Equal(t, 2, records[0].Items[0].Quantity)
	assert.True(t, records[0].Items[0].SalePrice.Equal(d(100)))
	assert.Equal(t, "SKU_002", records[0].Items[1].SKU)

	require.Len(t, records[1].Items, 1)
	assert.Equal(t, 5, records[1].Items[0].Quantity)
	assert.True(t, records[1].Items[0].Discount.Equal(d(5.5)))
}

func TestScanItems_BadNumeric(t *testing.T) {
	records := []model.PurchaseRecord{{ReceiptID: "r1"}}
	rows := &fakeRows{data: [][]string{{"r1", "SKU_001", "1", "ten", "0"}}}
	assert.ErrorContains(t, scanItems(rows, records), "sale_price")
}

func TestScanItems_RowsErr(t *testing.T) {
	assert.ErrorIs(t, scanItems(&fakeRows{err: errBoom}, nil), errBoom)
}

// --- CachedStore ---

// mapCache implements the redis.Cmdable subset used by CachedStore.
type mapCache struct {
	redis.Cmdable
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (c *mapCache) Get(_ context.Context, key string) *redis.StringCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func (c *mapCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		c.data[key] = append([]byte(nil), v...)
	case string:
		c.data[key] = []byte(v)
	}
	c.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (c *mapCache) Del(_ context.Context, keys ...string) *redis.IntCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := c.data[k]; ok {
			delete(c.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

// countingStore counts reads reaching the primary.
type countingStore struct {
	*MemoryStore
	sellers, products, records int
}

func (s *countingStore) Sellers(ctx context.Context) ([]model.Seller, error) {
	s.sellers++
	return s.MemoryStore.Sellers(ctx)
}

func (s *countingStore) Products(ctx context.Context) ([]model.Product, error) {
	s.products++
	return s.MemoryStore.Products(ctx)
}

func (s *countingStore) PurchaseRecords(ctx context.Context) ([]model.PurchaseRecord, error) {
	s.records++
	return s.MemoryStore.PurchaseRecords(ctx)
}

func TestCachedStore_ServesReferenceDataFromCache(t *testing.T) {
	primary := &countingStore{MemoryStore: NewMemoryStore(sample())}
	cache := newMapCache()
	st := NewCachedStore(primary, cache, time.Minute)
	ctx := context.Background()

	first, err := LoadDataset(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cache.ttls[sellersKey])
	assert.Contains(t, cache.data, productsKey)

	// Reference data changes in the primary are hidden until invalidation.
	primary.Replace(&model.Dataset{
		Sellers:         []model.Seller{{ID: "seller_2"}},
		Products:        []model.Product{{SKU: "SKU_009", PurchasePrice: d(1)}},
		PurchaseRecords: sample().PurchaseRecords,
	})

	second, err := LoadDataset(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, 1, primary.sellers)
	assert.Equal(t, 1, primary.products)
	assert.Equal(t, 2, primary.records)
	assert.Equal(t, first.Sellers, second.Sellers)
	assert.True(t, second.Products[0].PurchasePrice.Equal(d(50)))

	require.NoError(t, st.Invalidate(ctx))
	sellers, err := st.Sellers(ctx)
	require.NoError(t, err)
	assert.Equal(t, "seller_2", sellers[0].ID)
	assert.Equal(t, 2, primary.sellers)
}

func TestCachedStore_CorruptEntryFallsBackToPrimary(t *testing.T) {
	primary := &countingStore{MemoryStore: NewMemoryStore(sample())}
	cache := newMapCache()
	cache.data[sellersKey] = []byte("{not json")
	st := NewCachedStore(primary, cache, time.Minute)

	sellers, err := st.Sellers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "seller_1", sellers[0].ID)
	assert.Equal(t, 1, primary.sellers)
}

func TestCachedStore_RedisDownFallsBackToPrimary(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	st := NewCachedStore(NewMemoryStore(sample()), rdb, time.Minute)
	ctx := context.Background()

	ds, err := LoadDataset(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, sample(), ds)
	assert.Error(t, st.Invalidate(ctx))
}

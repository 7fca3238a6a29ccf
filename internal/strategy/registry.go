package strategy

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// Names of the built-in strategies.
const (
	RevenueSimple     = "simple"
	RevenueNoDiscount = "no_discount"
	BonusProfitRank   = "profit_rank"
	BonusFlat         = "flat"
)

var (
	// ErrAlreadyRegistered is returned when a name is registered twice.
	ErrAlreadyRegistered = errors.New("strategy: already registered")

	// ErrNotFound is returned when no strategy is registered under a name.
	ErrNotFound = errors.New("strategy: not found")
)

// Registry maps names to revenue and bonus strategies. An empty name
// resolves to the registered default. Safe for concurrent use.
type Registry struct {
	mu             sync.RWMutex
	revenue        map[string]RevenueStrategy
	bonus          map[string]BonusStrategy
	defaultRevenue string
	defaultBonus   string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		revenue: make(map[string]RevenueStrategy),
		bonus:   make(map[string]BonusStrategy),
	}
}

// NewDefaultRegistry creates a registry holding the built-in strategies,
// with SimpleRevenue and ProfitRankBonus as defaults.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	// Names are constants, registration cannot collide.
	_ = r.RegisterRevenue(RevenueSimple, SimpleRevenue{})
	_ = r.RegisterRevenue(RevenueNoDiscount, NoDiscountRevenue{})
	_ = r.RegisterBonus(BonusProfitRank, ProfitRankBonus{})
	_ = r.RegisterBonus(BonusFlat, FlatRateBonus{Rate: BaseRate})
	r.defaultRevenue = RevenueSimple
	r.defaultBonus = BonusProfitRank
	return r
}

// RegisterRevenue registers a revenue strategy. The first one registered
// becomes the default.
func (r *Registry) RegisterRevenue(name string, s RevenueStrategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.revenue[name]; exists {
		return fmt.Errorf("%w: revenue strategy %q", ErrAlreadyRegistered, name)
	}
	r.revenue[name] = s
	if r.defaultRevenue == "" {
		r.defaultRevenue = name
	}
	return nil
}

// RegisterBonus registers a bonus strategy. The first one registered
// becomes the default.
func (r *Registry) RegisterBonus(name string, s BonusStrategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bonus[name]; exists {
		return fmt.Errorf("%w: bonus strategy %q", ErrAlreadyRegistered, name)
	}
	r.bonus[name] = s
	if r.defaultBonus == "" {
		r.defaultBonus = name
	}
	return nil
}

// Revenue returns the revenue strategy registered under name, or the
// default if name is empty.
func (r *Registry) Revenue(name string) (RevenueStrategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.defaultRevenue
	}
	s, ok := r.revenue[name]
	if !ok {
		return nil, fmt.Errorf("%w: revenue strategy %q", ErrNotFound, name)
	}
	return s, nil
}

// Bonus returns the bonus strategy registered under name, or the default
// if name is empty.
func (r *Registry) Bonus(name string) (BonusStrategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.defaultBonus
	}
	s, ok := r.bonus[name]
	if !ok {
		return nil, fmt.Errorf("%w: bonus strategy %q", ErrNotFound, name)
	}
	return s, nil
}

// SetFlatRate replaces the rate of the flat bonus strategy.
func (r *Registry) SetFlatRate(rate decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bonus[BonusFlat] = FlatRateBonus{Rate: rate}
}

// Names lists the registered revenue and bonus strategy names, sorted.
func (r *Registry) Names() (revenue, bonus []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	revenue = make([]string, 0, len(r.revenue))
	for name := range r.revenue {
		revenue = append(revenue, name)
	}
	bonus = make([]string, 0, len(r.bonus))
	for name := range r.bonus {
		bonus = append(bonus, name)
	}
	sort.Strings(revenue)
	sort.Strings(bonus)
	return revenue, bonus
}

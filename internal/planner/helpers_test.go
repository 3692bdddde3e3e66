package planner

import (
	"context"
	"errors"
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
	"github.com/andresuchdata/autopo-py/replenishment/internal/repository"
	"github.com/andresuchdata/autopo-py/replenishment/internal/repository/memory"
)

const (
	testOrg   = "org-1"
	testStore = "store-1"
)

var errStoreDown = errors.New("connection refused")

func march(d int) time.Time {
	return time.Date(2025, time.March, d, 0, 0, 0, 0, time.UTC)
}

func ptr(v float64) *float64 {
	return &v
}

func activeProduct(id, category string) domain.Product {
	return domain.Product{
		ID:         id,
		OrgID:      testOrg,
		Name:       "Product " + id,
		CategoryID: category,
		Status:     domain.ProductActive,
		MgmtMode:   domain.MgmtManaged,
	}
}

// series stores one snapshot per consecutive day ending on the given day.
func series(repo *memory.SnapshotRepository, productID string, lastDay int, stocks ...float64) {
	snapshots := make([]domain.InventorySnapshot, 0, len(stocks))
	first := lastDay - len(stocks) + 1
	for i, stock := range stocks {
		snapshots = append(snapshots, domain.InventorySnapshot{
			OrgID:         testOrg,
			ProductID:     productID,
			StoreID:       testStore,
			Date:          march(first + i),
			PhysicalStock: stock,
		})
	}
	_ = repo.SaveSnapshots(context.Background(), snapshots)
}

// failingSnapshots fails every read for one product.
type failingSnapshots struct {
	repository.SnapshotRepository
	productID string
}

func (f *failingSnapshots) ListSnapshots(ctx context.Context, orgID, productID, storeID string, from, to time.Time) ([]domain.InventorySnapshot, error) {
	if productID == f.productID {
		return nil, errStoreDown
	}
	return f.SnapshotRepository.ListSnapshots(ctx, orgID, productID, storeID, from, to)
}

func (f *failingSnapshots) LatestSnapshot(ctx context.Context, orgID, productID, storeID string, asOf time.Time) (*domain.InventorySnapshot, error) {
	if productID == f.productID {
		return nil, errStoreDown
	}
	return f.SnapshotRepository.LatestSnapshot(ctx, orgID, productID, storeID, asOf)
}

// failingRules fails every rule read.
type failingRules struct{}

func (failingRules) ListActiveRules(ctx context.Context, orgID, storeID, categoryID, productID string) ([]domain.ReplenishmentRule, error) {
	return nil, errStoreDown
}

// countingRules counts per-product rule queries.
type countingRules struct {
	*memory.RuleRepository
	calls int
}

func (c *countingRules) ListActiveRules(ctx context.Context, orgID, storeID, categoryID, productID string) ([]domain.ReplenishmentRule, error) {
	c.calls++
	return c.RuleRepository.ListActiveRules(ctx, orgID, storeID, categoryID, productID)
}

// failingProducts fails the catalog read.
type failingProducts struct{}

func (failingProducts) ListPlannableProducts(ctx context.Context, orgID string) ([]domain.Product, error) {
	return nil, errStoreDown
}

func (failingProducts) GetProduct(ctx context.Context, orgID, productID string) (*domain.Product, error) {
	return nil, errStoreDown
}

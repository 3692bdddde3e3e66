package planner

import (
	"context"
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
	"github.com/andresuchdata/autopo-py/replenishment/internal/repository"
)

// StockLookup answers the last known on-hand quantity
type StockLookup struct {
	snapshots repository.SnapshotRepository
}

// NewStockLookup creates a lookup reading from snapshots
func NewStockLookup(snapshots repository.SnapshotRepository) *StockLookup {
	return &StockLookup{snapshots: snapshots}
}

// OnHand returns the physical stock of the newest snapshot dated on or before
// planDate. The value may be stale relative to planDate. With no snapshot, or a
// negative recorded count, it returns 0.
func (l *StockLookup) OnHand(ctx context.Context, orgID, productID, storeID string, planDate time.Time) (float64, error) {
	snapshot, err := l.snapshots.LatestSnapshot(ctx, orgID, productID, storeID, domain.TruncateDate(planDate))
	if err != nil {
		return 0, domain.NewQueryError("latest snapshot", err)
	}
	if snapshot == nil || snapshot.PhysicalStock < 0 {
		return 0, nil
	}
	return snapshot.PhysicalStock, nil
}

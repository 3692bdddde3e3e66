package planner

import (
	"context"
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
	"github.com/andresuchdata/autopo-py/replenishment/internal/repository"
	"github.com/shopspring/decimal"
)

// DemandEstimator infers average daily consumption from stock snapshots
type DemandEstimator struct {
	snapshots repository.SnapshotRepository
}

// NewDemandEstimator creates an estimator reading from snapshots
func NewDemandEstimator(snapshots repository.SnapshotRepository) *DemandEstimator {
	return &DemandEstimator{snapshots: snapshots}
}

// AvgDailyDemand returns the average consumption per snapshot interval over
// [planDate - windowDays, planDate]. A non-positive window uses the default.
func (e *DemandEstimator) AvgDailyDemand(ctx context.Context, orgID, productID, storeID string, windowDays int, planDate time.Time) (float64, error) {
	if windowDays <= 0 {
		windowDays = domain.DefaultDemandWindowDays
	}

	to := domain.TruncateDate(planDate)
	from := to.AddDate(0, 0, -windowDays)

	snapshots, err := e.snapshots.ListSnapshots(ctx, orgID, productID, storeID, from, to)
	if err != nil {
		return 0, domain.NewQueryError("list snapshots", err)
	}

	return AverageConsumption(snapshots), nil
}

// AverageConsumption walks a date-ascending series and averages stock
// decreases over the number of intervals. Restocks count as zero demand.
// Fewer than two snapshots yield 0.
//
// The average is per interval, not per calendar day, so an irregular
// snapshot cadence skews it.
func AverageConsumption(snapshots []domain.InventorySnapshot) float64 {
	if len(snapshots) < 2 {
		return 0
	}

	total := decimal.Zero
	for i := 1; i < len(snapshots); i++ {
		prev := decimal.NewFromFloat(snapshots[i-1].PhysicalStock)
		curr := decimal.NewFromFloat(snapshots[i].PhysicalStock)
		if curr.LessThan(prev) {
			total = total.Add(prev.Sub(curr))
		}
	}

	avg := total.Div(decimal.NewFromInt(int64(len(snapshots) - 1)))
	if avg.IsNegative() {
		return 0
	}
	f, _ := avg.Float64()
	return f
}

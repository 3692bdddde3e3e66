package planner

import (
	"context"
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
	"github.com/andresuchdata/autopo-py/replenishment/internal/repository"
	"github.com/shopspring/decimal"
)

// Calculator computes a replenishment recommendation for one product in one store
type Calculator struct {
	rules  *RuleResolver
	demand *DemandEstimator
	stock  *StockLookup
}

// NewCalculator wires the rule, demand and stock collaborators
func NewCalculator(rules repository.RuleRepository, snapshots repository.SnapshotRepository) *Calculator {
	return &Calculator{
		rules:  NewRuleResolver(rules),
		demand: NewDemandEstimator(snapshots),
		stock:  NewStockLookup(snapshots),
	}
}

// withRules returns a copy of the calculator resolving rules from repo.
func (c *Calculator) withRules(repo repository.RuleRepository) *Calculator {
	cp := *c
	cp.rules = NewRuleResolver(repo)
	return &cp
}

// Calculate builds the plan line for product in storeID on planDate.
// Data-access errors are returned as domain.QueryError and never turned
// into a zero recommendation.
func (c *Calculator) Calculate(ctx context.Context, orgID string, product domain.Product, storeID string, planDate time.Time) (domain.PlanLine, error) {
	planDate = domain.TruncateDate(planDate)

	// 1. Rule params for the product's scope
	params, err := c.rules.Resolve(ctx, orgID, storeID, product.CategoryID, product.ID)
	if err != nil {
		return domain.PlanLine{}, err
	}

	// 2. Demand over the rule's averaging window
	demand, err := c.demand.AvgDailyDemand(ctx, orgID, product.ID, storeID, params.DemandWindowDays, planDate)
	if err != nil {
		return domain.PlanLine{}, err
	}

	// 3. Seasonality
	factor := SeasonalityMultiplier(planDate, params.Seasonality)

	// 5. Current stock (step 4 needs no I/O and is folded into SizeOrder)
	current, err := c.stock.OnHand(ctx, orgID, product.ID, storeID, planDate)
	if err != nil {
		return domain.PlanLine{}, err
	}

	// 4, 6-9. Target and order quantity
	sizing := SizeOrder(params, demand, factor, current)

	// 10. Lifecycle status overrides everything
	recommended := sizing.Recommended
	if product.Status != domain.ProductActive {
		recommended = 0
	}

	// 11. Reason
	reason := domain.ReasonSufficientStock
	if recommended > 0 {
		reason = domain.ReasonRestockNeeded
	}

	return domain.PlanLine{
		OrgID:             orgID,
		PlanDate:          planDate,
		StoreID:           storeID,
		ProductID:         product.ID,
		ProductName:       product.Name,
		CurrentStock:      current,
		TargetStock:       sizing.Target,
		AvgDailyDemand:    demand,
		SeasonalityFactor: factor,
		RecommendedQty:    recommended,
		DaysOfCover:       params.DaysOfCover,
		MinStock:          params.MinStock,
		MaxStock:          params.MaxStock,
		Reason:            reason,
		Status:            domain.PlanDraft,
	}, nil
}

// OrderSizing is the outcome of SizeOrder
type OrderSizing struct {
	Target      float64
	Gap         float64 // max(0, target - current), before pack rounding
	Recommended float64
}

// SizeOrder applies the sizing policy to a resolved rule:
//
//	target      = max(min_stock or 0, ceil((cover + lead_time) * demand * factor + safety_stock))
//	recommended = max(0, target - current), rounded up to a pack multiple,
//	              raised to the MOQ when positive, clamped so current + recommended <= max_stock
func SizeOrder(params domain.RuleParams, demand, factor, current float64) OrderSizing {
	zero := decimal.Zero

	// 4. Target stock, never below min_stock or zero. Negative safety or
	// min stock is a configuration anomaly and counts as none.
	horizon := decimal.NewFromFloat(params.DaysOfCover).Add(decimal.NewFromFloat(params.LeadTimeDays))
	safety := decimal.Max(zero, decimal.NewFromFloat(params.SafetyStock))
	floor := zero
	if params.MinStock != nil {
		floor = decimal.Max(zero, decimal.NewFromFloat(*params.MinStock))
	}
	target := decimal.Max(floor, horizon.
		Mul(decimal.NewFromFloat(demand)).
		Mul(decimal.NewFromFloat(factor)).
		Add(safety).
		Ceil())

	// 6. Gap to target
	stock := decimal.NewFromFloat(current)
	gap := decimal.Max(zero, target.Sub(stock))

	// 7. Pack rounding
	pack := decimal.NewFromFloat(params.PackSize)
	if !pack.IsPositive() {
		pack = decimal.NewFromInt(1)
	}
	recommended := gap.Div(pack).Ceil().Mul(pack)

	// 8. MOQ dominates the demand signal when an order is placed at all
	moq := decimal.NewFromFloat(params.MOQ)
	if moq.IsPositive() && recommended.IsPositive() {
		recommended = decimal.Max(recommended, moq)
	}

	// 9. Max-stock cap
	if params.MaxStock != nil {
		room := decimal.Max(zero, decimal.NewFromFloat(*params.MaxStock).Sub(stock))
		recommended = decimal.Min(recommended, room)
	}

	return OrderSizing{
		Target:      target.InexactFloat64(),
		Gap:         gap.InexactFloat64(),
		Recommended: recommended.InexactFloat64(),
	}
}

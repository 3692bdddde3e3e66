package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
	"github.com/andresuchdata/autopo-py/replenishment/internal/repository/memory"
)

func TestSizeOrder(t *testing.T) {
	base := domain.DefaultRuleParams() // 7 days cover + 3 days lead time

	with := func(mutate func(p *domain.RuleParams)) domain.RuleParams {
		p := base
		mutate(&p)
		return p
	}

	tests := []struct {
		name                string
		params              domain.RuleParams
		demand              float64
		factor              float64
		current             float64
		expectedTarget      float64
		expectedRecommended float64
	}{
		{
			name:                "reference_scenario",
			params:              base,
			demand:              10,
			factor:              1.0,
			current:             40,
			expectedTarget:      100,
			expectedRecommended: 60,
		},
		{
			name:                "pack_rounds_gap_up",
			params:              with(func(p *domain.RuleParams) { p.PackSize = 5 }),
			demand:              1,
			factor:              1.0,
			current:             3,
			expectedTarget:      10,
			expectedRecommended: 10,
		},
		{
			name:                "zero_pack_treated_as_one",
			params:              with(func(p *domain.RuleParams) { p.PackSize = 0 }),
			demand:              1,
			factor:              1.0,
			current:             3,
			expectedTarget:      10,
			expectedRecommended: 7,
		},
		{
			name:                "negative_pack_treated_as_one",
			params:              with(func(p *domain.RuleParams) { p.PackSize = -3 }),
			demand:              1,
			factor:              1.0,
			current:             3,
			expectedTarget:      10,
			expectedRecommended: 7,
		},
		{
			name:                "moq_dominates_small_gap",
			params:              with(func(p *domain.RuleParams) { p.MOQ = 20 }),
			demand:              1,
			factor:              1.0,
			current:             7,
			expectedTarget:      10,
			expectedRecommended: 20,
		},
		{
			name:                "moq_ignored_without_order",
			params:              with(func(p *domain.RuleParams) { p.MOQ = 20 }),
			demand:              1,
			factor:              1.0,
			current:             15,
			expectedTarget:      10,
			expectedRecommended: 0,
		},
		{
			name:                "max_stock_clamps_order",
			params:              with(func(p *domain.RuleParams) { p.MaxStock = ptr(500) }),
			demand:              58,
			factor:              1.0,
			current:             480,
			expectedTarget:      580,
			expectedRecommended: 20,
		},
		{
			name:                "max_stock_below_current",
			params:              with(func(p *domain.RuleParams) { p.MaxStock = ptr(100) }),
			demand:              58,
			factor:              1.0,
			current:             150,
			expectedTarget:      580,
			expectedRecommended: 0,
		},
		{
			name:                "max_stock_clamps_after_moq",
			params:              with(func(p *domain.RuleParams) { p.MOQ = 50; p.MaxStock = ptr(20) }),
			demand:              1,
			factor:              1.0,
			current:             5,
			expectedTarget:      10,
			expectedRecommended: 15,
		},
		{
			name:                "min_stock_floor",
			params:              with(func(p *domain.RuleParams) { p.MinStock = ptr(25) }),
			demand:              0,
			factor:              1.0,
			current:             10,
			expectedTarget:      25,
			expectedRecommended: 15,
		},
		{
			name:                "safety_stock_added",
			params:              with(func(p *domain.RuleParams) { p.SafetyStock = 5 }),
			demand:              10,
			factor:              1.0,
			current:             0,
			expectedTarget:      105,
			expectedRecommended: 105,
		},
		{
			name:                "negative_safety_stock_ignored",
			params:              with(func(p *domain.RuleParams) { p.SafetyStock = -5 }),
			demand:              10,
			factor:              1.0,
			current:             40,
			expectedTarget:      100,
			expectedRecommended: 60,
		},
		{
			name:                "negative_horizon_floors_target_at_zero",
			params:              with(func(p *domain.RuleParams) { p.DaysOfCover = -20; p.LeadTimeDays = 0 }),
			demand:              5,
			factor:              1.0,
			current:             0,
			expectedTarget:      0,
			expectedRecommended: 0,
		},
		{
			name:                "min_stock_floor_with_negative_horizon",
			params:              with(func(p *domain.RuleParams) { p.DaysOfCover = -20; p.LeadTimeDays = 0; p.MinStock = ptr(12) }),
			demand:              5,
			factor:              1.0,
			current:             4,
			expectedTarget:      12,
			expectedRecommended: 8,
		},
		{
			name:                "negative_min_stock_floors_at_zero",
			params:              with(func(p *domain.RuleParams) { p.DaysOfCover = -20; p.LeadTimeDays = 0; p.MinStock = ptr(-3) }),
			demand:              5,
			factor:              1.0,
			current:             0,
			expectedTarget:      0,
			expectedRecommended: 0,
		},
		{
			name:                "seasonality_scales_target",
			params:              base,
			demand:              10,
			factor:              2.0,
			current:             40,
			expectedTarget:      200,
			expectedRecommended: 160,
		},
		{
			name:                "ceil_not_disturbed_by_float_error",
			params:              base,
			demand:              10,
			factor:              1.1,
			current:             0,
			expectedTarget:      110,
			expectedRecommended: 110,
		},
		{
			name:                "exact_product_not_rounded_up",
			params:              base,
			demand:              0.7,
			factor:              1.0,
			current:             0,
			expectedTarget:      7,
			expectedRecommended: 7,
		},
		{
			name:                "fractional_stock_rounds_to_whole_units",
			params:              base,
			demand:              10,
			factor:              1.0,
			current:             40.5,
			expectedTarget:      100,
			expectedRecommended: 60,
		},
		{
			name:                "no_demand_no_order",
			params:              base,
			demand:              0,
			factor:              1.0,
			current:             0,
			expectedTarget:      0,
			expectedRecommended: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SizeOrder(tt.params, tt.demand, tt.factor, tt.current)
			if got.Target != tt.expectedTarget {
				t.Errorf("Expected target %v, got %v", tt.expectedTarget, got.Target)
			}
			if got.Recommended != tt.expectedRecommended {
				t.Errorf("Expected recommended %v, got %v", tt.expectedRecommended, got.Recommended)
			}
			if got.Recommended < 0 || got.Target < 0 {
				t.Errorf("Target and recommended must never be negative, got %+v", got)
			}
		})
	}
}

func newCalculatorFixture() (*memory.RuleRepository, *memory.SnapshotRepository) {
	rules := memory.NewRuleRepository()
	snapshots := memory.NewSnapshotRepository()
	series(snapshots, "p1", 20, 60, 50, 40) // demand 10/day, 40 on hand on March 20
	return rules, snapshots
}

func TestCalculator_Calculate(t *testing.T) {
	rules, snapshots := newCalculatorFixture()
	calc := NewCalculator(rules, snapshots)

	line, err := calc.Calculate(context.Background(), testOrg, activeProduct("p1", "cat-1"), testStore, march(20))
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}

	if line.AvgDailyDemand != 10 {
		t.Errorf("Expected demand 10, got %v", line.AvgDailyDemand)
	}
	if line.CurrentStock != 40 {
		t.Errorf("Expected current stock 40, got %v", line.CurrentStock)
	}
	if line.TargetStock != 100 {
		t.Errorf("Expected target 100, got %v", line.TargetStock)
	}
	if line.RecommendedQty != 60 {
		t.Errorf("Expected recommended 60, got %v", line.RecommendedQty)
	}
	if line.SeasonalityFactor != 1.0 {
		t.Errorf("Expected seasonality 1.0, got %v", line.SeasonalityFactor)
	}
	if line.DaysOfCover != domain.DefaultDaysOfCover {
		t.Errorf("Expected days of cover %v, got %v", domain.DefaultDaysOfCover, line.DaysOfCover)
	}
	if line.Reason != domain.ReasonRestockNeeded {
		t.Errorf("Expected reason %q, got %q", domain.ReasonRestockNeeded, line.Reason)
	}
	if line.Status != domain.PlanDraft {
		t.Errorf("Expected draft status, got %s", line.Status)
	}
	if line.ProductName != "Product p1" || line.StoreID != testStore || line.OrgID != testOrg {
		t.Errorf("Unexpected identity fields: %+v", line)
	}
}

func TestCalculator_AppliesResolvedRule(t *testing.T) {
	rules, snapshots := newCalculatorFixture()
	params := domain.DefaultRuleParams()
	params.DaysOfCover = 17
	params.PackSize = 12
	params.MaxStock = ptr(1000)
	params.Seasonality = domain.Seasonality{NovDec: ptr(3)}
	rules.AddRule(domain.ReplenishmentRule{OrgID: testOrg, CategoryID: "cat-1", Params: params, Active: true})

	line, err := NewCalculator(rules, snapshots).Calculate(context.Background(), testOrg, activeProduct("p1", "cat-1"), testStore, march(20))
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}

	// (17 + 3) * 10 = 200; gap 160 rounds to 168 in packs of 12; March has no seasonality
	if line.TargetStock != 200 {
		t.Errorf("Expected target 200, got %v", line.TargetStock)
	}
	if line.RecommendedQty != 168 {
		t.Errorf("Expected recommended 168, got %v", line.RecommendedQty)
	}
	if line.MaxStock == nil || *line.MaxStock != 1000 {
		t.Errorf("Expected max stock 1000 on the line, got %v", line.MaxStock)
	}
}

func TestCalculator_InactiveProductNeverReplenished(t *testing.T) {
	for _, status := range []domain.ProductStatus{domain.ProductDiscontinued, domain.ProductPending} {
		t.Run(string(status), func(t *testing.T) {
			rules, snapshots := newCalculatorFixture()
			params := domain.DefaultRuleParams()
			params.MOQ = 500
			params.MinStock = ptr(1000)
			rules.AddRule(domain.ReplenishmentRule{OrgID: testOrg, ProductID: "p1", Params: params, Active: true})

			product := activeProduct("p1", "cat-1")
			product.Status = status

			line, err := NewCalculator(rules, snapshots).Calculate(context.Background(), testOrg, product, testStore, march(20))
			if err != nil {
				t.Fatalf("Calculate returned error: %v", err)
			}
			if line.RecommendedQty != 0 {
				t.Errorf("Expected 0 for %s product, got %v", status, line.RecommendedQty)
			}
			if line.Reason != domain.ReasonSufficientStock {
				t.Errorf("Expected reason %q, got %q", domain.ReasonSufficientStock, line.Reason)
			}
		})
	}
}

func TestCalculator_PropagatesQueryErrors(t *testing.T) {
	t.Run("rules", func(t *testing.T) {
		_, snapshots := newCalculatorFixture()
		_, err := NewCalculator(failingRules{}, snapshots).Calculate(context.Background(), testOrg, activeProduct("p1", "cat-1"), testStore, march(20))
		if !errors.Is(err, domain.ErrQuery) {
			t.Errorf("Expected ErrQuery, got %v", err)
		}
	})

	t.Run("snapshots", func(t *testing.T) {
		rules, snapshots := newCalculatorFixture()
		failing := &failingSnapshots{SnapshotRepository: snapshots, productID: "p1"}
		_, err := NewCalculator(rules, failing).Calculate(context.Background(), testOrg, activeProduct("p1", "cat-1"), testStore, march(20))
		if !errors.Is(err, domain.ErrQuery) {
			t.Errorf("Expected ErrQuery, got %v", err)
		}
	})
}

package domain

import "time"

const (
	ReasonRestockNeeded   = "Restock needed"
	ReasonSufficientStock = "Sufficient stock"
	PlanDateLayout        = "2006-01-02"
)

// PlanLine is one replenishment recommendation for a product in a store
type PlanLine struct {
	OrgID             string     `json:"org_id" db:"org_id"`
	PlanDate          time.Time  `json:"plan_date" db:"plan_date"`
	StoreID           string     `json:"store_id" db:"store_id"`
	ProductID         string     `json:"product_id" db:"product_id"`
	ProductName       string     `json:"product_name" db:"product_name"`
	CurrentStock      float64    `json:"current_stock" db:"current_stock"`
	TargetStock       float64    `json:"target_stock" db:"target_stock"`
	AvgDailyDemand    float64    `json:"avg_daily_demand" db:"avg_daily_demand"`
	SeasonalityFactor float64    `json:"seasonality_factor" db:"seasonality_factor"`
	RecommendedQty    float64    `json:"recommended_qty" db:"recommended_qty"`
	DaysOfCover       float64    `json:"days_of_cover" db:"days_of_cover"`
	MinStock          *float64   `json:"min_stock" db:"min_stock"`
	MaxStock          *float64   `json:"max_stock" db:"max_stock"`
	Reason            string     `json:"reason" db:"reason"`
	Status            PlanStatus `json:"status" db:"status"`
	GenerationID      string     `json:"generation_id" db:"generation_id"`
}

// LineFailure records a product whose recommendation could not be computed
type LineFailure struct {
	ProductID string `json:"product_id"`
	Reason    string `json:"reason"`
	Err       error  `json:"-"`
}

// PlanResult is the outcome of one plan generation run. Lines and Failures
// never share a product.
type PlanResult struct {
	OrgID        string        `json:"org_id"`
	StoreID      string        `json:"store_id"`
	PlanDate     time.Time     `json:"plan_date"`
	GenerationID string        `json:"generation_id"`
	Lines        []PlanLine    `json:"lines"`
	Failures     []LineFailure `json:"failures"`
}

// PlanSummary aggregates the lines of a plan for reporting
type PlanSummary struct {
	TotalLines          int     `json:"total_lines"`
	LinesToOrder        int     `json:"lines_to_order"`
	TotalRecommendedQty float64 `json:"total_recommended_qty"`
	FailedProducts      int     `json:"failed_products"`
}

// Summary folds the plan lines into reporting counters.
func (r *PlanResult) Summary() PlanSummary {
	summary := SummarizeLines(r.Lines)
	summary.FailedProducts = len(r.Failures)
	return summary
}

// SummarizeLines folds a set of plan lines into reporting counters.
func SummarizeLines(lines []PlanLine) PlanSummary {
	summary := PlanSummary{TotalLines: len(lines)}
	for _, line := range lines {
		if line.RecommendedQty > 0 {
			summary.LinesToOrder++
		}
		summary.TotalRecommendedQty += line.RecommendedQty
	}
	return summary
}

// Plan is a persisted plan: its header status plus all lines
type Plan struct {
	OrgID        string      `json:"org_id" db:"org_id"`
	StoreID      string      `json:"store_id" db:"store_id"`
	PlanDate     time.Time   `json:"plan_date" db:"plan_date"`
	Status       PlanStatus  `json:"status" db:"status"`
	GenerationID string      `json:"generation_id" db:"generation_id"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
	Lines        []PlanLine  `json:"lines" db:"-"`
	Summary      PlanSummary `json:"summary" db:"-"`
}

// PlanLineFilter narrows the lines returned with a plan
type PlanLineFilter struct {
	OnlyToOrder bool
	ProductIDs  []string
}

// Match reports whether line passes the filter. A nil filter matches everything.
func (f *PlanLineFilter) Match(line PlanLine) bool {
	if f == nil {
		return true
	}
	if f.OnlyToOrder && line.RecommendedQty <= 0 {
		return false
	}
	if len(f.ProductIDs) == 0 {
		return true
	}
	for _, id := range f.ProductIDs {
		if id == line.ProductID {
			return true
		}
	}
	return false
}

// PlanKey identifies a plan
type PlanKey struct {
	OrgID    string
	StoreID  string
	PlanDate time.Time
}

// TruncateDate strips the time of day, keeping the calendar date in UTC.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

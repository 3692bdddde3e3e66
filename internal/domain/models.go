// internal/domain/models.go
package domain

import (
	"encoding/json"
	"math"
	"time"
)

// ProductStatus is the lifecycle status of a catalog product
type ProductStatus string

const (
	ProductActive       ProductStatus = "active"
	ProductDiscontinued ProductStatus = "discontinued"
	ProductPending      ProductStatus = "pending"
)

// Valid reports whether s is a known status
func (s ProductStatus) Valid() bool {
	switch s {
	case ProductActive, ProductDiscontinued, ProductPending:
		return true
	}
	return false
}

// MgmtMode tells whether a product takes part in replenishment planning
type MgmtMode string

const (
	MgmtManaged   MgmtMode = "managed"
	MgmtUnmanaged MgmtMode = "unmanaged"
)

func (m MgmtMode) Valid() bool {
	return m == MgmtManaged || m == MgmtUnmanaged
}

// Product represents a catalog product owned by an organization
type Product struct {
	ID         string        `json:"id" db:"id"`
	OrgID      string        `json:"org_id" db:"org_id"`
	Name       string        `json:"name" db:"name"`
	CategoryID string        `json:"category_id" db:"category_id"`
	Status     ProductStatus `json:"status" db:"status"`
	MgmtMode   MgmtMode      `json:"mgmt_mode" db:"mgmt_mode"`
}

// Plannable reports whether the product is replenished by the planner.
func (p Product) Plannable() bool {
	return p.Status == ProductActive && p.MgmtMode == MgmtManaged
}

// InventorySnapshot is a point-in-time physical stock count for a product in a store
type InventorySnapshot struct {
	ID            int64     `json:"id" db:"id"`
	OrgID         string    `json:"org_id" db:"org_id"`
	ProductID     string    `json:"product_id" db:"product_id"`
	StoreID       string    `json:"store_id" db:"store_id"`
	Date          time.Time `json:"date" db:"snapshot_date"`
	PhysicalStock float64   `json:"physical_stock" db:"physical_stock"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Seasonality holds demand multipliers for the named calendar periods.
// A nil field means no adjustment for that period.
type Seasonality struct {
	Feb14      *float64 `json:"feb14,omitempty"`
	MothersDay *float64 `json:"mothers_day,omitempty"`
	NovDec     *float64 `json:"nov_dec,omitempty"`
}

// IsEmpty reports whether no period carries a usable multiplier.
func (s Seasonality) IsEmpty() bool {
	return !validMultiplier(s.Feb14) && !validMultiplier(s.MothersDay) && !validMultiplier(s.NovDec)
}

// UnmarshalJSON decodes the stored map form, dropping unknown keys and
// multipliers that are not positive finite numbers.
func (s *Seasonality) UnmarshalJSON(data []byte) error {
	raw := map[string]float64{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	pick := func(key string) *float64 {
		v, ok := raw[key]
		if !ok || !validMultiplier(&v) {
			return nil
		}
		return &v
	}

	*s = Seasonality{
		Feb14:      pick("feb14"),
		MothersDay: pick("mothers_day"),
		NovDec:     pick("nov_dec"),
	}
	return nil
}

func validMultiplier(v *float64) bool {
	return v != nil && *v > 0 && !math.IsInf(*v, 0) && !math.IsNaN(*v)
}

// RuleParams are the policy parameters applied when sizing a replenishment order
type RuleParams struct {
	DaysOfCover      float64     `json:"days_of_cover"`
	LeadTimeDays     float64     `json:"lead_time_days"`
	ServiceLevel     float64     `json:"service_level"`
	SafetyStock      float64     `json:"safety_stock"`
	DemandWindowDays int         `json:"demand_window_days"`
	Seasonality      Seasonality `json:"seasonality"`
	PackSize         float64     `json:"pack_size"`
	MOQ              float64     `json:"moq"`
	MaxStock         *float64    `json:"max_stock,omitempty"`
	MinStock         *float64    `json:"min_stock,omitempty"`
}

const (
	DefaultDaysOfCover      = 7
	DefaultLeadTimeDays     = 3
	DefaultServiceLevel     = 0.9
	DefaultDemandWindowDays = 28
)

// DefaultRuleParams returns the parameters used when no rule matches a scope.
func DefaultRuleParams() RuleParams {
	return RuleParams{
		DaysOfCover:      DefaultDaysOfCover,
		LeadTimeDays:     DefaultLeadTimeDays,
		ServiceLevel:     DefaultServiceLevel,
		SafetyStock:      0,
		DemandWindowDays: DefaultDemandWindowDays,
		PackSize:         1,
		MOQ:              0,
	}
}

// Specificity ranks how narrowly a rule is scoped. Higher wins.
type Specificity int

const (
	SpecificityGlobal Specificity = iota
	SpecificityStore
	SpecificityCategory
	SpecificityProduct
)

func (s Specificity) String() string {
	switch s {
	case SpecificityProduct:
		return "product"
	case SpecificityCategory:
		return "category"
	case SpecificityStore:
		return "store"
	default:
		return "global"
	}
}

// ReplenishmentRule binds RuleParams to a (store, category, product) scope.
// Empty scope fields are unset.
type ReplenishmentRule struct {
	ID         int64      `json:"id" db:"id"`
	OrgID      string     `json:"org_id" db:"org_id"`
	StoreID    string     `json:"store_id" db:"store_id"`
	CategoryID string     `json:"category_id" db:"category_id"`
	ProductID  string     `json:"product_id" db:"product_id"`
	Params     RuleParams `json:"params" db:"-"`
	Active     bool       `json:"active" db:"active"`
	Priority   int        `json:"priority" db:"priority"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// Specificity returns the scope level of the rule.
func (r ReplenishmentRule) Specificity() Specificity {
	switch {
	case r.ProductID != "":
		return SpecificityProduct
	case r.CategoryID != "":
		return SpecificityCategory
	case r.StoreID != "":
		return SpecificityStore
	default:
		return SpecificityGlobal
	}
}

// Matches reports whether the rule applies to the given scope using the four
// supported patterns: exact product, category without product, store without
// category and product, or fully global.
func (r ReplenishmentRule) Matches(store, category, product string) bool {
	switch r.Specificity() {
	case SpecificityProduct:
		return r.ProductID == product
	case SpecificityCategory:
		return r.CategoryID == category
	case SpecificityStore:
		return r.StoreID == store
	default:
		return true
	}
}

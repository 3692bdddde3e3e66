// internal/repository/repository.go
package repository

import (
	"context"
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
)

// ProductRepository reads the product catalog.
type ProductRepository interface {
	// ListPlannableProducts returns the active, managed products of an org.
	ListPlannableProducts(ctx context.Context, orgID string) ([]domain.Product, error)
	GetProduct(ctx context.Context, orgID, productID string) (*domain.Product, error)
}

// SnapshotRepository reads and appends inventory snapshots.
type SnapshotRepository interface {
	// ListSnapshots returns snapshots with from <= date <= to, ordered by date ascending.
	ListSnapshots(ctx context.Context, orgID, productID, storeID string, from, to time.Time) ([]domain.InventorySnapshot, error)
	// LatestSnapshot returns the newest snapshot with date <= asOf, or nil when none exists.
	LatestSnapshot(ctx context.Context, orgID, productID, storeID string, asOf time.Time) (*domain.InventorySnapshot, error)
	// SaveSnapshots stores snapshots, replacing any existing one for the same
	// (org, product, store, date).
	SaveSnapshots(ctx context.Context, snapshots []domain.InventorySnapshot) error
}

// RuleRepository reads replenishment rules.
type RuleRepository interface {
	// ListActiveRules returns the active rules of an org matching any of the
	// product, category, store or global scope patterns.
	ListActiveRules(ctx context.Context, orgID, storeID, categoryID, productID string) ([]domain.ReplenishmentRule, error)
}

// PlanRepository persists generated plans and their status.
type PlanRepository interface {
	// GetPlanStatus returns the status of a plan and whether it exists.
	GetPlanStatus(ctx context.Context, key domain.PlanKey) (domain.PlanStatus, bool, error)
	// ReplaceDraftPlan swaps all lines of a draft plan in one transaction.
	// It fails with domain.ErrPlanLocked when the plan is no longer a draft.
	ReplaceDraftPlan(ctx context.Context, key domain.PlanKey, generationID string, lines []domain.PlanLine) error
	// GetPlan returns the plan with the lines passing filter, or
	// domain.ErrPlanNotFound. The summary covers the returned lines.
	GetPlan(ctx context.Context, key domain.PlanKey, filter *domain.PlanLineFilter) (*domain.Plan, error)
	// TransitionPlan moves a plan from one status to the next. It fails with
	// domain.ErrInvalidTransition when the plan is not in status from.
	TransitionPlan(ctx context.Context, key domain.PlanKey, from, to domain.PlanStatus) error
}

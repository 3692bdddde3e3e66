package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
)

func day(d int) time.Time {
	return time.Date(2025, time.April, d, 0, 0, 0, 0, time.UTC)
}

func snapshot(d int, stock float64) domain.InventorySnapshot {
	return domain.InventorySnapshot{OrgID: "org-1", ProductID: "p1", StoreID: "s1", Date: day(d), PhysicalStock: stock}
}

func TestSnapshotRepository_KeepsSeriesOrdered(t *testing.T) {
	repo := NewSnapshotRepository()
	ctx := context.Background()

	if err := repo.SaveSnapshots(ctx, []domain.InventorySnapshot{snapshot(5, 50), snapshot(1, 10), snapshot(3, 30)}); err != nil {
		t.Fatalf("SaveSnapshots returned error: %v", err)
	}
	// Same calendar date with a time component replaces the stored value
	late := snapshot(3, 33)
	late.Date = day(3).Add(17 * time.Hour)
	if err := repo.SaveSnapshots(ctx, []domain.InventorySnapshot{late}); err != nil {
		t.Fatalf("SaveSnapshots returned error: %v", err)
	}

	got, err := repo.ListSnapshots(ctx, "org-1", "p1", "s1", day(1), day(5))
	if err != nil {
		t.Fatalf("ListSnapshots returned error: %v", err)
	}

	expected := []float64{10, 33, 50}
	if len(got) != len(expected) {
		t.Fatalf("Expected %d snapshots, got %d", len(expected), len(got))
	}
	for i, s := range got {
		if s.PhysicalStock != expected[i] {
			t.Errorf("Snapshot %d: expected %v, got %v", i, expected[i], s.PhysicalStock)
		}
		if i > 0 && !got[i-1].Date.Before(s.Date) {
			t.Errorf("Snapshots not strictly ascending at %d", i)
		}
	}
}

func TestSnapshotRepository_ListBounds(t *testing.T) {
	repo := NewSnapshotRepository()
	ctx := context.Background()
	_ = repo.SaveSnapshots(ctx, []domain.InventorySnapshot{snapshot(1, 1), snapshot(2, 2), snapshot(3, 3), snapshot(4, 4)})

	tests := []struct {
		name     string
		from, to int
		expected int
	}{
		{name: "inclusive_both_ends", from: 2, to: 3, expected: 2},
		{name: "single_day", from: 4, to: 4, expected: 1},
		{name: "empty_range", from: 5, to: 9, expected: 0},
		{name: "everything", from: 1, to: 30, expected: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ListSnapshots(ctx, "org-1", "p1", "s1", day(tt.from), day(tt.to))
			if err != nil {
				t.Fatalf("ListSnapshots returned error: %v", err)
			}
			if len(got) != tt.expected {
				t.Errorf("Expected %d snapshots, got %d", tt.expected, len(got))
			}
		})
	}
}

func TestSnapshotRepository_LatestSnapshot(t *testing.T) {
	repo := NewSnapshotRepository()
	ctx := context.Background()
	_ = repo.SaveSnapshots(ctx, []domain.InventorySnapshot{snapshot(2, 20), snapshot(6, 60)})

	got, err := repo.LatestSnapshot(ctx, "org-1", "p1", "s1", day(5))
	if err != nil {
		t.Fatalf("LatestSnapshot returned error: %v", err)
	}
	if got == nil || got.PhysicalStock != 20 {
		t.Fatalf("Expected stock 20, got %+v", got)
	}

	got, err = repo.LatestSnapshot(ctx, "org-1", "p1", "s1", day(1))
	if err != nil {
		t.Fatalf("LatestSnapshot returned error: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil before the first snapshot, got %+v", got)
	}
}

func TestProductRepository_ListPlannableProducts(t *testing.T) {
	repo := NewProductRepository()
	repo.AddProduct(domain.Product{ID: "b", OrgID: "org-1", Status: domain.ProductActive, MgmtMode: domain.MgmtManaged})
	repo.AddProduct(domain.Product{ID: "a", OrgID: "org-1", Status: domain.ProductActive, MgmtMode: domain.MgmtManaged})
	repo.AddProduct(domain.Product{ID: "c", OrgID: "org-1", Status: domain.ProductActive, MgmtMode: domain.MgmtUnmanaged})
	repo.AddProduct(domain.Product{ID: "d", OrgID: "org-1", Status: domain.ProductPending, MgmtMode: domain.MgmtManaged})
	repo.AddProduct(domain.Product{ID: "e", OrgID: "org-2", Status: domain.ProductActive, MgmtMode: domain.MgmtManaged})

	products, err := repo.ListPlannableProducts(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("ListPlannableProducts returned error: %v", err)
	}
	if len(products) != 2 || products[0].ID != "a" || products[1].ID != "b" {
		t.Errorf("Expected [a b], got %+v", products)
	}

	missing, err := repo.GetProduct(context.Background(), "org-1", "zzz")
	if err != nil || missing != nil {
		t.Errorf("Expected nil, nil for a missing product, got %+v, %v", missing, err)
	}
}

func TestPlanRepository_Lifecycle(t *testing.T) {
	repo := NewPlanRepository()
	ctx := context.Background()
	key := domain.PlanKey{OrgID: "org-1", StoreID: "s1", PlanDate: day(10)}
	lines := []domain.PlanLine{
		{ProductID: "p1", RecommendedQty: 10, Status: domain.PlanDraft},
		{ProductID: "p2", RecommendedQty: 0, Status: domain.PlanDraft},
	}

	if _, err := repo.GetPlan(ctx, key, nil); !errors.Is(err, domain.ErrPlanNotFound) {
		t.Fatalf("Expected ErrPlanNotFound, got %v", err)
	}

	if err := repo.ReplaceDraftPlan(ctx, key, "gen-1", lines); err != nil {
		t.Fatalf("ReplaceDraftPlan returned error: %v", err)
	}
	if err := repo.ReplaceDraftPlan(ctx, key, "gen-2", lines[:1]); err != nil {
		t.Fatalf("Replacing a draft returned error: %v", err)
	}

	plan, err := repo.GetPlan(ctx, key, nil)
	if err != nil {
		t.Fatalf("GetPlan returned error: %v", err)
	}
	if plan.GenerationID != "gen-2" || len(plan.Lines) != 1 {
		t.Errorf("Expected the second generation only, got %s with %d lines", plan.GenerationID, len(plan.Lines))
	}
	if plan.Summary.LinesToOrder != 1 || plan.Summary.TotalRecommendedQty != 10 {
		t.Errorf("Unexpected summary: %+v", plan.Summary)
	}

	filtered, err := repo.GetPlan(ctx, key, &domain.PlanLineFilter{ProductIDs: []string{"p2"}})
	if err != nil {
		t.Fatalf("GetPlan with filter returned error: %v", err)
	}
	if len(filtered.Lines) != 0 {
		t.Errorf("Expected no lines for a product outside the plan, got %d", len(filtered.Lines))
	}

	if err := repo.TransitionPlan(ctx, key, domain.PlanApproved, domain.PlanConvertedToPO); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition converting a draft, got %v", err)
	}
	if err := repo.TransitionPlan(ctx, key, domain.PlanDraft, domain.PlanApproved); err != nil {
		t.Fatalf("Approve returned error: %v", err)
	}

	if err := repo.ReplaceDraftPlan(ctx, key, "gen-3", lines); !errors.Is(err, domain.ErrPlanLocked) {
		t.Errorf("Expected ErrPlanLocked on an approved plan, got %v", err)
	}

	status, exists, err := repo.GetPlanStatus(ctx, key)
	if err != nil || !exists || status != domain.PlanApproved {
		t.Errorf("Expected approved, got %s exists=%v err=%v", status, exists, err)
	}

	plan, _ = repo.GetPlan(ctx, key, nil)
	if plan.Lines[0].Status != domain.PlanApproved {
		t.Errorf("Expected line status to follow the plan, got %s", plan.Lines[0].Status)
	}
}

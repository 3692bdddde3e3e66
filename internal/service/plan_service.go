package service

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
	"github.com/andresuchdata/autopo-py/replenishment/internal/export"
	"github.com/andresuchdata/autopo-py/replenishment/internal/planner"
	"github.com/andresuchdata/autopo-py/replenishment/internal/repository"
	"github.com/rs/zerolog/log"
)

type PlanService struct {
	generator *planner.Generator
	plans     repository.PlanRepository
	exporter  *export.Exporter
}

// NewPlanService wires the plan workflow. A nil exporter disables ExportPlan.
func NewPlanService(generator *planner.Generator, plans repository.PlanRepository, exporter *export.Exporter) *PlanService {
	return &PlanService{
		generator: generator,
		plans:     plans,
		exporter:  exporter,
	}
}

func planKey(orgID, storeID string, planDate time.Time) domain.PlanKey {
	return domain.PlanKey{OrgID: orgID, StoreID: storeID, PlanDate: domain.TruncateDate(planDate)}
}

// PreviewPlan computes a plan without persisting it
func (s *PlanService) PreviewPlan(ctx context.Context, orgID, storeID string, planDate time.Time) (*domain.PlanResult, error) {
	return s.generator.Generate(ctx, orgID, storeID, planDate)
}

// GeneratePlan computes the plan for a store and date and replaces the stored
// draft with it. Approved or converted plans are never overwritten.
func (s *PlanService) GeneratePlan(ctx context.Context, orgID, storeID string, planDate time.Time) (*domain.PlanResult, error) {
	key := planKey(orgID, storeID, planDate)

	// 1. Refuse early when the plan is locked
	status, exists, err := s.plans.GetPlanStatus(ctx, key)
	if err != nil {
		return nil, domain.NewQueryError("get plan status", err)
	}
	if exists && status.Locked() {
		return nil, fmt.Errorf("%w: plan is %s", domain.ErrPlanLocked, status)
	}

	// 2. Compute in memory
	result, err := s.generator.Generate(ctx, orgID, storeID, key.PlanDate)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 3. Swap the draft atomically; the repository re-checks the status
	if err := s.plans.ReplaceDraftPlan(ctx, key, result.GenerationID, result.Lines); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("failed to save plan: %w", err)
	}

	summary := result.Summary()
	log.Info().
		Str("org", orgID).
		Str("store", storeID).
		Str("plan_date", key.PlanDate.Format(domain.PlanDateLayout)).
		Str("generation_id", result.GenerationID).
		Int("lines", summary.TotalLines).
		Int("failed", summary.FailedProducts).
		Msg("draft plan saved")

	return result, nil
}

// GetPlan returns the stored plan with the lines passing filter
func (s *PlanService) GetPlan(ctx context.Context, orgID, storeID string, planDate time.Time, filter *domain.PlanLineFilter) (*domain.Plan, error) {
	return s.plans.GetPlan(ctx, planKey(orgID, storeID, planDate), filter)
}

// ApprovePlan moves a draft plan to approved
func (s *PlanService) ApprovePlan(ctx context.Context, orgID, storeID string, planDate time.Time) error {
	return s.transition(ctx, planKey(orgID, storeID, planDate), domain.PlanDraft, domain.PlanApproved)
}

// ConvertPlanToPO marks an approved plan as converted to a purchase order
func (s *PlanService) ConvertPlanToPO(ctx context.Context, orgID, storeID string, planDate time.Time) error {
	return s.transition(ctx, planKey(orgID, storeID, planDate), domain.PlanApproved, domain.PlanConvertedToPO)
}

func (s *PlanService) transition(ctx context.Context, key domain.PlanKey, from, to domain.PlanStatus) error {
	if err := s.plans.TransitionPlan(ctx, key, from, to); err != nil {
		return err
	}

	log.Info().
		Str("org", key.OrgID).
		Str("store", key.StoreID).
		Str("plan_date", key.PlanDate.Format(domain.PlanDateLayout)).
		Str("status", string(to)).
		Msg("plan status changed")
	return nil
}

// ExportPlan uploads the stored plan as CSV and returns the object key
func (s *PlanService) ExportPlan(ctx context.Context, orgID, storeID string, planDate time.Time) (string, error) {
	if s.exporter == nil {
		return "", domain.ErrStorageDisabled
	}

	plan, err := s.plans.GetPlan(ctx, planKey(orgID, storeID, planDate), nil)
	if err != nil {
		return "", err
	}

	key, err := s.exporter.Export(ctx, plan)
	if err != nil {
		return "", fmt.Errorf("failed to export plan: %w", err)
	}
	return key, nil
}

// ListExports returns the plan CSVs exported for a store, newest first
func (s *PlanService) ListExports(ctx context.Context, orgID, storeID string) ([]export.ExportedPlan, error) {
	if s.exporter == nil {
		return nil, domain.ErrStorageDisabled
	}

	exports, err := s.exporter.List(ctx, orgID, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}
	return exports, nil
}

// DownloadExport copies an exported plan CSV to dest and returns its object key
func (s *PlanService) DownloadExport(ctx context.Context, orgID, storeID string, planDate time.Time, dest string) (string, error) {
	if s.exporter == nil {
		return "", domain.ErrStorageDisabled
	}

	key, err := s.exporter.Download(ctx, planKey(orgID, storeID, planDate), dest)
	if err != nil {
		return "", fmt.Errorf("failed to download export: %w", err)
	}
	return key, nil
}

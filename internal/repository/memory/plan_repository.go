package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
	"github.com/andresuchdata/autopo-py/replenishment/internal/repository"
)

type planKey struct {
	org   string
	store string
	date  string
}

func toPlanKey(key domain.PlanKey) planKey {
	return planKey{
		org:   key.OrgID,
		store: key.StoreID,
		date:  key.PlanDate.Format(domain.PlanDateLayout),
	}
}

// PlanRepository provides in-memory plan storage
type PlanRepository struct {
	mu    sync.Mutex
	plans map[planKey]*domain.Plan
}

// NewPlanRepository creates a new in-memory plan repository
func NewPlanRepository() *PlanRepository {
	return &PlanRepository{
		plans: make(map[planKey]*domain.Plan),
	}
}

var _ repository.PlanRepository = (*PlanRepository)(nil)

// GetPlanStatus returns the plan status and whether the plan exists
func (r *PlanRepository) GetPlanStatus(ctx context.Context, key domain.PlanKey) (domain.PlanStatus, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	plan, ok := r.plans[toPlanKey(key)]
	if !ok {
		return "", false, nil
	}
	return plan.Status, true, nil
}

// ReplaceDraftPlan swaps the lines of a draft plan, creating it when missing
func (r *PlanRepository) ReplaceDraftPlan(ctx context.Context, key domain.PlanKey, generationID string, lines []domain.PlanLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := toPlanKey(key)
	if existing, ok := r.plans[k]; ok && existing.Status.Locked() {
		return domain.ErrPlanLocked
	}

	stored := make([]domain.PlanLine, len(lines))
	copy(stored, lines)
	r.plans[k] = &domain.Plan{
		OrgID:        key.OrgID,
		StoreID:      key.StoreID,
		PlanDate:     domain.TruncateDate(key.PlanDate),
		Status:       domain.PlanDraft,
		GenerationID: generationID,
		UpdatedAt:    time.Now(),
		Lines:        stored,
	}

	return nil
}

// GetPlan returns a copy of the stored plan holding the lines that pass filter
func (r *PlanRepository) GetPlan(ctx context.Context, key domain.PlanKey, filter *domain.PlanLineFilter) (*domain.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	plan, ok := r.plans[toPlanKey(key)]
	if !ok {
		return nil, domain.ErrPlanNotFound
	}

	out := *plan
	out.Lines = make([]domain.PlanLine, 0, len(plan.Lines))
	for _, line := range plan.Lines {
		if filter.Match(line) {
			out.Lines = append(out.Lines, line)
		}
	}
	out.Summary = domain.SummarizeLines(out.Lines)
	return &out, nil
}

// TransitionPlan moves the plan and its lines from one status to the next
func (r *PlanRepository) TransitionPlan(ctx context.Context, key domain.PlanKey, from, to domain.PlanStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	plan, ok := r.plans[toPlanKey(key)]
	if !ok {
		return domain.ErrPlanNotFound
	}
	if plan.Status != from || !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, plan.Status, to)
	}

	plan.Status = to
	plan.UpdatedAt = time.Now()
	for i := range plan.Lines {
		plan.Lines[i].Status = to
	}

	return nil
}

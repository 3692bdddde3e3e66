package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
	"github.com/andresuchdata/autopo-py/replenishment/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type planRepository struct {
	db *DB
}

func NewPlanRepository(db *DB) repository.PlanRepository {
	return &planRepository{db: db}
}

func (r *planRepository) GetPlanStatus(ctx context.Context, key domain.PlanKey) (domain.PlanStatus, bool, error) {
	query := `
		SELECT status
		FROM replenishment_plans
		WHERE org_id = $1 AND store_id = $2 AND plan_date = $3
	`

	var status domain.PlanStatus
	err := sqlx.GetContext(ctx, r.db, &status, query, key.OrgID, key.StoreID, domain.TruncateDate(key.PlanDate))
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get plan status: %w", err)
	}

	return status, true, nil
}

func (r *planRepository) ReplaceDraftPlan(ctx context.Context, key domain.PlanKey, generationID string, lines []domain.PlanLine) error {
	planDate := domain.TruncateDate(key.PlanDate)

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		// 1. Make sure the header exists, then lock it so concurrent
		// generations for the same plan serialize here
		_, err := tx.ExecContext(ctx, `
			INSERT INTO replenishment_plans (org_id, store_id, plan_date, status, generation_id)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (org_id, store_id, plan_date) DO NOTHING
		`, key.OrgID, key.StoreID, planDate, domain.PlanDraft, generationID)
		if err != nil {
			return fmt.Errorf("failed to upsert plan header: %w", err)
		}

		var status domain.PlanStatus
		err = tx.GetContext(ctx, &status, `
			SELECT status
			FROM replenishment_plans
			WHERE org_id = $1 AND store_id = $2 AND plan_date = $3
			FOR UPDATE
		`, key.OrgID, key.StoreID, planDate)
		if err != nil {
			return fmt.Errorf("failed to lock plan header: %w", err)
		}
		if status.Locked() {
			return domain.ErrPlanLocked
		}

		// 2. Replace the lines
		_, err = tx.ExecContext(ctx, `
			UPDATE replenishment_plans
			SET generation_id = $4, updated_at = NOW()
			WHERE org_id = $1 AND store_id = $2 AND plan_date = $3
		`, key.OrgID, key.StoreID, planDate, generationID)
		if err != nil {
			return fmt.Errorf("failed to update plan header: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			DELETE FROM replenishment_plan_lines
			WHERE org_id = $1 AND store_id = $2 AND plan_date = $3
		`, key.OrgID, key.StoreID, planDate)
		if err != nil {
			return fmt.Errorf("failed to delete draft lines: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO replenishment_plan_lines (
				org_id, store_id, plan_date, product_id, product_name,
				current_stock, target_stock, avg_daily_demand, seasonality_factor,
				recommended_qty, days_of_cover, min_stock, max_stock,
				reason, status, generation_id
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, line := range lines {
			_, err := stmt.ExecContext(
				ctx,
				key.OrgID,
				key.StoreID,
				planDate,
				line.ProductID,
				line.ProductName,
				line.CurrentStock,
				line.TargetStock,
				line.AvgDailyDemand,
				line.SeasonalityFactor,
				line.RecommendedQty,
				line.DaysOfCover,
				line.MinStock,
				line.MaxStock,
				line.Reason,
				domain.PlanDraft,
				generationID,
			)
			if err != nil {
				return fmt.Errorf("failed to insert plan line %s: %w", line.ProductID, err)
			}
		}

		return nil
	})
}

func (r *planRepository) GetPlan(ctx context.Context, key domain.PlanKey, filter *domain.PlanLineFilter) (*domain.Plan, error) {
	planDate := domain.TruncateDate(key.PlanDate)

	var plan domain.Plan
	err := sqlx.GetContext(ctx, r.db, &plan, `
		SELECT org_id, store_id, plan_date, status, generation_id, updated_at
		FROM replenishment_plans
		WHERE org_id = $1 AND store_id = $2 AND plan_date = $3
	`, key.OrgID, key.StoreID, planDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	filterClause, filterArgs := buildPlanLineFilterClause(filter, "", 4)
	query := `
		SELECT org_id, plan_date, store_id, product_id, product_name,
			current_stock, target_stock, avg_daily_demand, seasonality_factor,
			recommended_qty, days_of_cover, min_stock, max_stock,
			reason, status, generation_id
		FROM replenishment_plan_lines
		WHERE org_id = $1 AND store_id = $2 AND plan_date = $3` + filterClause + `
		ORDER BY product_id
	`

	args := append([]interface{}{key.OrgID, key.StoreID, planDate}, filterArgs...)
	if err := sqlx.SelectContext(ctx, r.db, &plan.Lines, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list plan lines: %w", err)
	}
	if plan.Lines == nil {
		plan.Lines = []domain.PlanLine{}
	}
	plan.Summary = domain.SummarizeLines(plan.Lines)

	return &plan, nil
}

func (r *planRepository) TransitionPlan(ctx context.Context, key domain.PlanKey, from, to domain.PlanStatus) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}
	planDate := domain.TruncateDate(key.PlanDate)

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var current domain.PlanStatus
		err := tx.GetContext(ctx, &current, `
			SELECT status
			FROM replenishment_plans
			WHERE org_id = $1 AND store_id = $2 AND plan_date = $3
			FOR UPDATE
		`, key.OrgID, key.StoreID, planDate)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrPlanNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock plan header: %w", err)
		}
		if current != from {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current, to)
		}

		now := time.Now()
		if _, err := tx.ExecContext(ctx, `
			UPDATE replenishment_plans
			SET status = $4, updated_at = $5
			WHERE org_id = $1 AND store_id = $2 AND plan_date = $3
		`, key.OrgID, key.StoreID, planDate, to, now); err != nil {
			return fmt.Errorf("failed to update plan status: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE replenishment_plan_lines
			SET status = $4
			WHERE org_id = $1 AND store_id = $2 AND plan_date = $3
		`, key.OrgID, key.StoreID, planDate, to); err != nil {
			return fmt.Errorf("failed to update plan line status: %w", err)
		}

		return nil
	})
}

// buildPlanLineFilterClause constructs the SQL filter clause for plan line queries
func buildPlanLineFilterClause(filter *domain.PlanLineFilter, alias string, startIndex int) (string, []interface{}) {
	if filter == nil {
		return "", nil
	}

	var (
		clauses []string
		args    []interface{}
	)
	idx := startIndex

	if filter.OnlyToOrder {
		clauses = append(clauses, alias+"recommended_qty > 0")
	}

	if len(filter.ProductIDs) > 0 {
		clauses = append(clauses, fmt.Sprintf("%sproduct_id = ANY($%d)", alias, idx))
		args = append(args, pq.Array(filter.ProductIDs))
		idx++
	}

	if len(clauses) == 0 {
		return "", nil
	}

	return " AND " + strings.Join(clauses, " AND "), args
}

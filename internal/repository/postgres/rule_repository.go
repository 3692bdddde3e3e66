package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
	"github.com/jmoiron/sqlx"
)

type ruleRow struct {
	ID         int64          `db:"id"`
	OrgID      string         `db:"org_id"`
	StoreID    sql.NullString `db:"store_id"`
	CategoryID sql.NullString `db:"category_id"`
	ProductID  sql.NullString `db:"product_id"`
	Params     []byte         `db:"params"`
	Active     bool           `db:"active"`
	Priority   int            `db:"priority"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

// toDomain decodes the stored params over the defaults, so keys missing
// from the JSONB document keep their default value.
func (r ruleRow) toDomain() (domain.ReplenishmentRule, error) {
	params := domain.DefaultRuleParams()
	if len(r.Params) > 0 {
		if err := json.Unmarshal(r.Params, &params); err != nil {
			return domain.ReplenishmentRule{}, fmt.Errorf("decode params of rule %d: %w", r.ID, err)
		}
	}

	return domain.ReplenishmentRule{
		ID:         r.ID,
		OrgID:      r.OrgID,
		StoreID:    r.StoreID.String,
		CategoryID: r.CategoryID.String,
		ProductID:  r.ProductID.String,
		Params:     params,
		Active:     r.Active,
		Priority:   r.Priority,
		UpdatedAt:  r.UpdatedAt,
	}, nil
}

func toRules(rows []ruleRow) ([]domain.ReplenishmentRule, error) {
	rules := make([]domain.ReplenishmentRule, 0, len(rows))
	for _, row := range rows {
		rule, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// RuleRepository reads replenishment rules. Besides the per-scope query it
// can load an org's full active rule set in one round trip.
type RuleRepository struct {
	db *DB
}

func NewRuleRepository(db *DB) *RuleRepository {
	return &RuleRepository{db: db}
}

const ruleColumns = `id, org_id, store_id, category_id, product_id, params, active, priority, updated_at`

func (r *RuleRepository) ListActiveRules(ctx context.Context, orgID, storeID, categoryID, productID string) ([]domain.ReplenishmentRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM replenishment_rules
		WHERE org_id = $1
		  AND active
		  AND (
			product_id = $4
			OR (product_id IS NULL AND category_id = $3)
			OR (product_id IS NULL AND category_id IS NULL AND store_id = $2)
			OR (product_id IS NULL AND category_id IS NULL AND store_id IS NULL)
		  )
		ORDER BY id
	`

	var rows []ruleRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, orgID, storeID, categoryID, productID); err != nil {
		return nil, fmt.Errorf("failed to list active rules: %w", err)
	}

	return toRules(rows)
}

func (r *RuleRepository) ListOrgActiveRules(ctx context.Context, orgID string) ([]domain.ReplenishmentRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM replenishment_rules
		WHERE org_id = $1 AND active
		ORDER BY id
	`

	var rows []ruleRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, orgID); err != nil {
		return nil, fmt.Errorf("failed to list org rules: %w", err)
	}

	return toRules(rows)
}

// CreateRule stores a new rule and returns it with its id
func (r *RuleRepository) CreateRule(ctx context.Context, rule domain.ReplenishmentRule) (domain.ReplenishmentRule, error) {
	params, err := json.Marshal(rule.Params)
	if err != nil {
		return rule, fmt.Errorf("encode rule params: %w", err)
	}

	query := `
		INSERT INTO replenishment_rules (
			org_id, store_id, category_id, product_id, params, active, priority
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, updated_at
	`

	err = r.db.QueryRowxContext(ctx, query,
		rule.OrgID,
		nullIfEmpty(rule.StoreID),
		nullIfEmpty(rule.CategoryID),
		nullIfEmpty(rule.ProductID),
		string(params),
		rule.Active,
		rule.Priority,
	).Scan(&rule.ID, &rule.UpdatedAt)
	if err != nil {
		return rule, fmt.Errorf("failed to create rule: %w", err)
	}

	return rule, nil
}

// nullIfEmpty returns NULL if the string is empty, otherwise returns the string
func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

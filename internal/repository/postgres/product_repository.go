package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
	"github.com/andresuchdata/autopo-py/replenishment/internal/repository"
	"github.com/jmoiron/sqlx"
)

type productRepository struct {
	db *DB
}

func NewProductRepository(db *DB) repository.ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) ListPlannableProducts(ctx context.Context, orgID string) ([]domain.Product, error) {
	query := `
		SELECT id, org_id, name, category_id, status, mgmt_mode
		FROM products
		WHERE org_id = $1
		  AND status = $2
		  AND mgmt_mode = $3
		ORDER BY id
	`

	var products []domain.Product
	err := sqlx.SelectContext(ctx, r.db, &products, query, orgID, domain.ProductActive, domain.MgmtManaged)
	if err != nil {
		return nil, fmt.Errorf("failed to list plannable products: %w", err)
	}

	return products, nil
}

func (r *productRepository) GetProduct(ctx context.Context, orgID, productID string) (*domain.Product, error) {
	query := `
		SELECT id, org_id, name, category_id, status, mgmt_mode
		FROM products
		WHERE org_id = $1 AND id = $2
	`

	var product domain.Product
	err := sqlx.GetContext(ctx, r.db, &product, query, orgID, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &product, nil
}

// UpsertProducts inserts or updates catalog products
func UpsertProducts(ctx context.Context, db *DB, products []domain.Product) error {
	return db.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO products (id, org_id, name, category_id, status, mgmt_mode)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (org_id, id)
			DO UPDATE SET
				name = EXCLUDED.name,
				category_id = EXCLUDED.category_id,
				status = EXCLUDED.status,
				mgmt_mode = EXCLUDED.mgmt_mode,
				updated_at = NOW()
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, p := range products {
			if _, err := stmt.ExecContext(ctx, p.ID, p.OrgID, p.Name, p.CategoryID, p.Status, p.MgmtMode); err != nil {
				return fmt.Errorf("failed to upsert product %s: %w", p.ID, err)
			}
		}

		return nil
	})
}

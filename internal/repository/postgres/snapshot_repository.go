package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
	"github.com/andresuchdata/autopo-py/replenishment/internal/repository"
	"github.com/jmoiron/sqlx"
)

type snapshotRepository struct {
	db *DB
}

func NewSnapshotRepository(db *DB) repository.SnapshotRepository {
	return &snapshotRepository{db: db}
}

const snapshotColumns = `id, org_id, product_id, store_id, snapshot_date, physical_stock, created_at`

func (r *snapshotRepository) ListSnapshots(ctx context.Context, orgID, productID, storeID string, from, to time.Time) ([]domain.InventorySnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM inventory_snapshots
		WHERE org_id = $1
		  AND product_id = $2
		  AND store_id = $3
		  AND snapshot_date BETWEEN $4 AND $5
		ORDER BY snapshot_date ASC
	`

	var snapshots []domain.InventorySnapshot
	err := sqlx.SelectContext(ctx, r.db, &snapshots, query,
		orgID, productID, storeID, domain.TruncateDate(from), domain.TruncateDate(to))
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	return snapshots, nil
}

func (r *snapshotRepository) LatestSnapshot(ctx context.Context, orgID, productID, storeID string, asOf time.Time) (*domain.InventorySnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM inventory_snapshots
		WHERE org_id = $1
		  AND product_id = $2
		  AND store_id = $3
		  AND snapshot_date <= $4
		ORDER BY snapshot_date DESC
		LIMIT 1
	`

	var snapshot domain.InventorySnapshot
	err := sqlx.GetContext(ctx, r.db, &snapshot, query, orgID, productID, storeID, domain.TruncateDate(asOf))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}

	return &snapshot, nil
}

func (r *snapshotRepository) SaveSnapshots(ctx context.Context, snapshots []domain.InventorySnapshot) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO inventory_snapshots (
				org_id, product_id, store_id, snapshot_date, physical_stock, created_at
			) VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (org_id, product_id, store_id, snapshot_date)
			DO UPDATE SET
				physical_stock = EXCLUDED.physical_stock,
				created_at = EXCLUDED.created_at
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, s := range snapshots {
			_, err := stmt.ExecContext(
				ctx,
				s.OrgID,
				s.ProductID,
				s.StoreID,
				domain.TruncateDate(s.Date),
				s.PhysicalStock,
				time.Now(),
			)
			if err != nil {
				return fmt.Errorf("failed to insert snapshot: %w", err)
			}
		}

		return nil
	})
}

package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
	"github.com/andresuchdata/autopo-py/replenishment/internal/repository"
)

type seriesKey struct {
	org     string
	product string
	store   string
}

// SnapshotRepository provides in-memory inventory snapshot storage.
// Each series is kept sorted by date with at most one snapshot per date.
type SnapshotRepository struct {
	mu     sync.RWMutex
	series map[seriesKey][]domain.InventorySnapshot
	nextID int64
}

// NewSnapshotRepository creates a new in-memory snapshot repository
func NewSnapshotRepository() *SnapshotRepository {
	return &SnapshotRepository{
		series: make(map[seriesKey][]domain.InventorySnapshot),
	}
}

var _ repository.SnapshotRepository = (*SnapshotRepository)(nil)

// SaveSnapshots stores snapshots; a later write for the same date replaces the earlier one
func (r *SnapshotRepository) SaveSnapshots(ctx context.Context, snapshots []domain.InventorySnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range snapshots {
		s.Date = domain.TruncateDate(s.Date)
		if s.CreatedAt.IsZero() {
			s.CreatedAt = time.Now()
		}
		r.nextID++
		s.ID = r.nextID

		key := seriesKey{org: s.OrgID, product: s.ProductID, store: s.StoreID}
		series := r.series[key]
		idx := sort.Search(len(series), func(i int) bool {
			return !series[i].Date.Before(s.Date)
		})
		if idx < len(series) && series[idx].Date.Equal(s.Date) {
			series[idx] = s
			continue
		}
		series = append(series, domain.InventorySnapshot{})
		copy(series[idx+1:], series[idx:])
		series[idx] = s
		r.series[key] = series
	}

	return nil
}

// ListSnapshots returns snapshots within [from, to] ordered by date ascending
func (r *SnapshotRepository) ListSnapshots(ctx context.Context, orgID, productID, storeID string, from, to time.Time) ([]domain.InventorySnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	from, to = domain.TruncateDate(from), domain.TruncateDate(to)
	var result []domain.InventorySnapshot
	for _, s := range r.series[seriesKey{org: orgID, product: productID, store: storeID}] {
		if s.Date.Before(from) || s.Date.After(to) {
			continue
		}
		result = append(result, s)
	}

	return result, nil
}

// LatestSnapshot returns the newest snapshot dated on or before asOf
func (r *SnapshotRepository) LatestSnapshot(ctx context.Context, orgID, productID, storeID string, asOf time.Time) (*domain.InventorySnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	asOf = domain.TruncateDate(asOf)
	series := r.series[seriesKey{org: orgID, product: productID, store: storeID}]
	for i := len(series) - 1; i >= 0; i-- {
		if !series[i].Date.After(asOf) {
			s := series[i]
			return &s, nil
		}
	}

	return nil, nil
}

package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
	"github.com/andresuchdata/autopo-py/replenishment/internal/repository"
)

// ProductRepository provides in-memory product storage
type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]map[string]domain.Product // org -> product id -> product
}

// NewProductRepository creates a new in-memory product repository
func NewProductRepository() *ProductRepository {
	return &ProductRepository{
		products: make(map[string]map[string]domain.Product),
	}
}

// Verify interface compliance
var _ repository.ProductRepository = (*ProductRepository)(nil)

// AddProduct adds or replaces a product
func (r *ProductRepository) AddProduct(p domain.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.products[p.OrgID] == nil {
		r.products[p.OrgID] = make(map[string]domain.Product)
	}
	r.products[p.OrgID][p.ID] = p
}

// ListPlannableProducts returns active, managed products ordered by id
func (r *ProductRepository) ListPlannableProducts(ctx context.Context, orgID string) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var products []domain.Product
	for _, p := range r.products[orgID] {
		if p.Plannable() {
			products = append(products, p)
		}
	}
	sort.Slice(products, func(i, j int) bool {
		return products[i].ID < products[j].ID
	})

	return products, nil
}

// GetProduct returns a product or nil when it does not exist
func (r *ProductRepository) GetProduct(ctx context.Context, orgID, productID string) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[orgID][productID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

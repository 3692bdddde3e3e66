package memory

import (
	"context"
	"sync"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
	"github.com/andresuchdata/autopo-py/replenishment/internal/repository"
)

// RuleRepository provides in-memory replenishment rule storage
type RuleRepository struct {
	mu     sync.RWMutex
	rules  []domain.ReplenishmentRule
	nextID int64
}

// NewRuleRepository creates a new in-memory rule repository
func NewRuleRepository() *RuleRepository {
	return &RuleRepository{}
}

var _ repository.RuleRepository = (*RuleRepository)(nil)

// AddRule stores a rule, assigning an id when it has none
func (r *RuleRepository) AddRule(rule domain.ReplenishmentRule) domain.ReplenishmentRule {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rule.ID == 0 {
		r.nextID++
		rule.ID = r.nextID
	} else if rule.ID > r.nextID {
		r.nextID = rule.ID
	}
	r.rules = append(r.rules, rule)
	return rule
}

// ListActiveRules returns active rules of the org matching any supported scope pattern
func (r *RuleRepository) ListActiveRules(ctx context.Context, orgID, storeID, categoryID, productID string) ([]domain.ReplenishmentRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []domain.ReplenishmentRule
	for _, rule := range r.rules {
		if rule.OrgID != orgID || !rule.Active {
			continue
		}
		if rule.Matches(storeID, categoryID, productID) {
			matched = append(matched, rule)
		}
	}

	return matched, nil
}

// ListOrgActiveRules returns every active rule of the org
func (r *RuleRepository) ListOrgActiveRules(ctx context.Context, orgID string) ([]domain.ReplenishmentRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var rules []domain.ReplenishmentRule
	for _, rule := range r.rules {
		if rule.OrgID == orgID && rule.Active {
			rules = append(rules, rule)
		}
	}

	return rules, nil
}

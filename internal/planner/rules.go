package planner

import (
	"context"
	"sort"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
	"github.com/andresuchdata/autopo-py/replenishment/internal/repository"
)

// OrgRuleLister is implemented by rule repositories that can load every
// active rule of an org at once. The generator uses it to fetch the rule set
// a single time per run.
type OrgRuleLister interface {
	ListOrgActiveRules(ctx context.Context, orgID string) ([]domain.ReplenishmentRule, error)
}

// RuleResolver picks the parameters of the most specific active rule for a scope
type RuleResolver struct {
	repo repository.RuleRepository
}

// NewRuleResolver creates a resolver reading from repo
func NewRuleResolver(repo repository.RuleRepository) *RuleResolver {
	return &RuleResolver{repo: repo}
}

// Resolve returns the params of the winning rule for (store, category, product),
// or domain.DefaultRuleParams when no active rule matches.
func (r *RuleResolver) Resolve(ctx context.Context, orgID, storeID, categoryID, productID string) (domain.RuleParams, error) {
	rules, err := r.repo.ListActiveRules(ctx, orgID, storeID, categoryID, productID)
	if err != nil {
		return domain.RuleParams{}, domain.NewQueryError("list active rules", err)
	}

	winner := SelectRule(rules, storeID, categoryID, productID)
	if winner == nil {
		return domain.DefaultRuleParams(), nil
	}
	return winner.Params, nil
}

// SelectRule returns the winning rule among candidates, or nil.
// Specificity always dominates. Within one specificity level the highest
// priority wins, then the most recently updated, then the lowest id.
func SelectRule(candidates []domain.ReplenishmentRule, storeID, categoryID, productID string) *domain.ReplenishmentRule {
	eligible := make([]domain.ReplenishmentRule, 0, len(candidates))
	for _, rule := range candidates {
		if rule.Active && rule.Matches(storeID, categoryID, productID) {
			eligible = append(eligible, rule)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if sa, sb := a.Specificity(), b.Specificity(); sa != sb {
			return sa > sb
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.ID < b.ID
	})

	return &eligible[0]
}

// RuleSet is an immutable, preloaded set of org rules that serves
// ListActiveRules without touching the data store.
type RuleSet struct {
	orgID string
	rules []domain.ReplenishmentRule
}

// NewRuleSet wraps the active rules of one org
func NewRuleSet(orgID string, rules []domain.ReplenishmentRule) *RuleSet {
	owned := make([]domain.ReplenishmentRule, len(rules))
	copy(owned, rules)
	return &RuleSet{orgID: orgID, rules: owned}
}

var _ repository.RuleRepository = (*RuleSet)(nil)

// ListActiveRules filters the preloaded rules by scope
func (s *RuleSet) ListActiveRules(ctx context.Context, orgID, storeID, categoryID, productID string) ([]domain.ReplenishmentRule, error) {
	if orgID != s.orgID {
		return nil, nil
	}

	var matched []domain.ReplenishmentRule
	for _, rule := range s.rules {
		if rule.Active && rule.Matches(storeID, categoryID, productID) {
			matched = append(matched, rule)
		}
	}
	return matched, nil
}

// Len returns the number of preloaded rules
func (s *RuleSet) Len() int {
	return len(s.rules)
}

package cache

import (
	"context"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
	"github.com/andresuchdata/autopo-py/replenishment/internal/repository"
	"github.com/rs/zerolog/log"
)

// RuleSource is a rule repository that can also list an org's full rule set
type RuleSource interface {
	repository.RuleRepository
	ListOrgActiveRules(ctx context.Context, orgID string) ([]domain.ReplenishmentRule, error)
}

// CachedRuleRepository serves rule reads from the org rule set held in a
// RuleSetCache, loading it from the source on a miss. Cache failures are
// logged and the source is used instead.
type CachedRuleRepository struct {
	source RuleSource
	cache  RuleSetCache
}

func NewCachedRuleRepository(source RuleSource, cache RuleSetCache) *CachedRuleRepository {
	if cache == nil {
		cache = NewNoopRuleSetCache()
	}
	return &CachedRuleRepository{source: source, cache: cache}
}

var _ RuleSource = (*CachedRuleRepository)(nil)

func (r *CachedRuleRepository) ListActiveRules(ctx context.Context, orgID, storeID, categoryID, productID string) ([]domain.ReplenishmentRule, error) {
	rules, err := r.ListOrgActiveRules(ctx, orgID)
	if err != nil {
		return nil, err
	}

	var matched []domain.ReplenishmentRule
	for _, rule := range rules {
		if rule.Active && rule.Matches(storeID, categoryID, productID) {
			matched = append(matched, rule)
		}
	}
	return matched, nil
}

func (r *CachedRuleRepository) ListOrgActiveRules(ctx context.Context, orgID string) ([]domain.ReplenishmentRule, error) {
	cached, ok, err := r.cache.GetOrgRules(ctx, orgID)
	if err != nil {
		log.Warn().Err(err).Str("org", orgID).Msg("rule cache read failed")
	} else if ok {
		return cached, nil
	}

	rules, err := r.source.ListOrgActiveRules(ctx, orgID)
	if err != nil {
		return nil, err
	}

	if err := r.cache.SetOrgRules(ctx, orgID, rules); err != nil {
		log.Warn().Err(err).Str("org", orgID).Msg("rule cache write failed")
	}
	return rules, nil
}


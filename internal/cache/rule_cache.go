package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/config"
	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	ruleSetKeyPrefix = "replenishment:rules"
	defaultRulesTTL  = 5 * time.Minute
)

// RuleSetCache stores the active rule set of an org
type RuleSetCache interface {
	GetOrgRules(ctx context.Context, orgID string) ([]domain.ReplenishmentRule, bool, error)
	SetOrgRules(ctx context.Context, orgID string, rules []domain.ReplenishmentRule) error
	InvalidateOrg(ctx context.Context, orgID string) error
	// InvalidateAll drops the rule sets of every org and returns how many were cached
	InvalidateAll(ctx context.Context) (int, error)
}

type redisRuleSetCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopRuleSetCache struct{}

func NewRuleSetCache(cfg config.CacheConfig) (RuleSetCache, error) {
	if !cfg.Enabled {
		return &noopRuleSetCache{}, nil
	}

	client, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisRuleSetCache{
		client: client,
		ttl:    ruleSetTTL(cfg),
	}, nil
}

func ruleSetTTL(cfg config.CacheConfig) time.Duration {
	if cfg.RulesTTLSeconds <= 0 {
		return defaultRulesTTL
	}
	return time.Duration(cfg.RulesTTLSeconds) * time.Second
}

func NewNoopRuleSetCache() RuleSetCache {
	return &noopRuleSetCache{}
}

func (c *redisRuleSetCache) GetOrgRules(ctx context.Context, orgID string) ([]domain.ReplenishmentRule, bool, error) {
	payload, err := c.client.Get(ctx, buildRuleSetKey(orgID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	rules, err := decodeRuleSet(payload)
	if err != nil {
		return nil, false, err
	}
	return rules, true, nil
}

func (c *redisRuleSetCache) SetOrgRules(ctx context.Context, orgID string, rules []domain.ReplenishmentRule) error {
	payload, err := encodeRuleSet(rules)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, buildRuleSetKey(orgID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisRuleSetCache) InvalidateOrg(ctx context.Context, orgID string) error {
	return c.client.Del(ctx, buildRuleSetKey(orgID)).Err()
}

func (c *redisRuleSetCache) InvalidateAll(ctx context.Context) (int, error) {
	return deleteKeysWithPrefix(ctx, c.client, ruleSetKeyPrefix, scanBatchSize)
}

func (n *noopRuleSetCache) GetOrgRules(ctx context.Context, orgID string) ([]domain.ReplenishmentRule, bool, error) {
	return nil, false, nil
}

func (n *noopRuleSetCache) SetOrgRules(ctx context.Context, orgID string, rules []domain.ReplenishmentRule) error {
	return nil
}

func (n *noopRuleSetCache) InvalidateOrg(ctx context.Context, orgID string) error {
	return nil
}

func (n *noopRuleSetCache) InvalidateAll(ctx context.Context) (int, error) {
	return 0, nil
}

func buildRuleSetKey(orgID string) string {
	sum := sha1.Sum([]byte(strings.TrimSpace(orgID)))
	return fmt.Sprintf("%s:%s", ruleSetKeyPrefix, hex.EncodeToString(sum[:]))
}

func encodeRuleSet(rules []domain.ReplenishmentRule) ([]byte, error) {
	if rules == nil {
		rules = []domain.ReplenishmentRule{}
	}
	payload, err := json.Marshal(rules)
	if err != nil {
		return nil, fmt.Errorf("encode rule set cache: %w", err)
	}
	return payload, nil
}

func decodeRuleSet(payload []byte) ([]domain.ReplenishmentRule, error) {
	var rules []domain.ReplenishmentRule
	if err := json.Unmarshal(payload, &rules); err != nil {
		return nil, fmt.Errorf("decode rule set cache: %w", err)
	}
	return rules, nil
}

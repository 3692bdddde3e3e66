package planner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
	"github.com/andresuchdata/autopo-py/replenishment/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

// Config holds configuration for the plan generator
type Config struct {
	// Concurrency caps how many products are calculated at once
	Concurrency int
	// PreloadRules loads the org's rule set once per run when the rule
	// repository supports it, instead of querying rules per product
	PreloadRules bool
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Concurrency:  defaultConcurrency,
		PreloadRules: true,
	}
}

// Generator assembles a full replenishment plan for a store
type Generator struct {
	products repository.ProductRepository
	rules    repository.RuleRepository
	calc     *Calculator
	config   Config
}

// NewGenerator creates a new plan generator
func NewGenerator(products repository.ProductRepository, rules repository.RuleRepository, snapshots repository.SnapshotRepository, cfg Config) *Generator {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Generator{
		products: products,
		rules:    rules,
		calc:     NewCalculator(rules, snapshots),
		config:   cfg,
	}
}

type outcome struct {
	line *domain.PlanLine
	err  error
}

// Generate computes one draft line per plannable product of the org for
// storeID on planDate. A product whose calculation fails is reported in
// PlanResult.Failures and the rest of the plan still completes. Cancelling
// ctx aborts the run and returns ctx.Err(). Nothing is persisted.
func (g *Generator) Generate(ctx context.Context, orgID, storeID string, planDate time.Time) (*domain.PlanResult, error) {
	planDate = domain.TruncateDate(planDate)
	generationID := uuid.NewString()

	logger := log.With().
		Str("org", orgID).
		Str("store", storeID).
		Str("plan_date", planDate.Format(domain.PlanDateLayout)).
		Str("generation_id", generationID).
		Logger()

	products, err := g.products.ListPlannableProducts(ctx, orgID)
	if err != nil {
		return nil, domain.NewQueryError("list plannable products", err)
	}

	calc, err := g.calculatorForRun(ctx, orgID)
	if err != nil {
		return nil, err
	}

	logger.Info().Int("products", len(products)).Msg("generating replenishment plan")
	start := time.Now()

	outcomes := make([]outcome, len(products))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.config.Concurrency)

	for i, product := range products {
		if !product.Plannable() {
			continue
		}
		if egCtx.Err() != nil {
			break
		}

		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}

			line, err := calc.Calculate(egCtx, orgID, product, storeID, planDate)
			if err != nil {
				if ctxErr := egCtx.Err(); ctxErr != nil {
					return ctxErr
				}
				outcomes[i] = outcome{err: err}
				return nil
			}

			line.GenerationID = generationID
			outcomes[i] = outcome{line: &line}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("plan generation aborted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("plan generation aborted: %w", err)
	}

	result := &domain.PlanResult{
		OrgID:        orgID,
		StoreID:      storeID,
		PlanDate:     planDate,
		GenerationID: generationID,
		Lines:        make([]domain.PlanLine, 0, len(products)),
	}
	for i, o := range outcomes {
		switch {
		case o.err != nil:
			logger.Warn().Err(o.err).Str("product", products[i].ID).Msg("replenishment calculation failed")
			result.Failures = append(result.Failures, domain.LineFailure{
				ProductID: products[i].ID,
				Reason:    o.err.Error(),
				Err:       o.err,
			})
		case o.line != nil:
			result.Lines = append(result.Lines, *o.line)
		}
	}

	sort.Slice(result.Lines, func(i, j int) bool {
		return result.Lines[i].ProductID < result.Lines[j].ProductID
	})
	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].ProductID < result.Failures[j].ProductID
	})

	summary := result.Summary()
	logger.Info().
		Int("lines", summary.TotalLines).
		Int("lines_to_order", summary.LinesToOrder).
		Float64("total_recommended_qty", summary.TotalRecommendedQty).
		Int("failed", summary.FailedProducts).
		Dur("duration", time.Since(start)).
		Msg("replenishment plan generated")

	return result, nil
}

// calculatorForRun returns a calculator whose rule lookups hit a rule set
// loaded once for this run, when the repository supports it.
func (g *Generator) calculatorForRun(ctx context.Context, orgID string) (*Calculator, error) {
	if !g.config.PreloadRules {
		return g.calc, nil
	}
	lister, ok := g.rules.(OrgRuleLister)
	if !ok {
		return g.calc, nil
	}

	rules, err := lister.ListOrgActiveRules(ctx, orgID)
	if err != nil {
		return nil, domain.NewQueryError("list org rules", err)
	}
	set := NewRuleSet(orgID, rules)
	log.Debug().Str("org", orgID).Int("rules", set.Len()).Msg("preloaded org rule set")
	return g.calc.withRules(set), nil
}

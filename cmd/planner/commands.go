package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/cache"
	"github.com/andresuchdata/autopo-py/replenishment/internal/config"
	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
	"github.com/andresuchdata/autopo-py/replenishment/internal/export"
	"github.com/andresuchdata/autopo-py/replenishment/internal/planner"
	"github.com/andresuchdata/autopo-py/replenishment/internal/repository/postgres"
	"github.com/andresuchdata/autopo-py/replenishment/internal/service"
	"github.com/andresuchdata/autopo-py/replenishment/internal/storage"
	"github.com/andresuchdata/autopo-py/replenishment/pkg/logger"
	"github.com/urfave/cli/v2"
)

type scope struct {
	orgID    string
	storeID  string
	planDate time.Time
}

func parseScope(c *cli.Context) (scope, error) {
	s := scope{
		orgID:    strings.TrimSpace(c.String("org")),
		storeID:  strings.TrimSpace(c.String("store")),
		planDate: domain.TruncateDate(time.Now()),
	}
	if raw := c.String("date"); raw != "" {
		date, err := time.Parse(domain.PlanDateLayout, raw)
		if err != nil {
			return s, fmt.Errorf("invalid --date %q, expected YYYY-MM-DD: %w", raw, err)
		}
		s.planDate = date
	}
	return s, nil
}

func newRuleCache(cfg config.CacheConfig) cache.RuleSetCache {
	ruleCache, err := cache.NewRuleSetCache(cfg)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("rule cache unavailable, reading rules from the database")
		return cache.NewNoopRuleSetCache()
	}
	return ruleCache
}

func newExporter(cfg config.StorageConfig) (*export.Exporter, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	objects, err := storage.NewMinioClient(cfg)
	if err != nil {
		return nil, err
	}
	return export.NewExporter(objects, cfg.Prefix), nil
}

// newPlanService wires the postgres repositories the same way the server does
func newPlanService(c *cli.Context, db *postgres.DB) (*service.PlanService, error) {
	cfg := config.Load()

	rules := cache.NewCachedRuleRepository(postgres.NewRuleRepository(db), newRuleCache(cfg.Cache))
	generator := planner.NewGenerator(
		postgres.NewProductRepository(db),
		rules,
		postgres.NewSnapshotRepository(db),
		planner.Config{
			Concurrency:  c.Int("concurrency"),
			PreloadRules: cfg.Planner.PreloadRules,
		},
	)

	exporter, err := newExporter(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object storage: %w", err)
	}

	return service.NewPlanService(generator, postgres.NewPlanRepository(db), exporter), nil
}

func runMigrate(c *cli.Context) error {
	db, err := dbFromContext(c)
	if err != nil {
		return err
	}

	applied, err := postgres.Migrate(c.Context, db)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		logger.Log.Info().Msg("schema is up to date")
		return nil
	}
	logger.Log.Info().Strs("migrations", applied).Msg("migrations applied")
	return nil
}

func runGenerate(c *cli.Context) error {
	db, err := dbFromContext(c)
	if err != nil {
		return err
	}
	s, err := parseScope(c)
	if err != nil {
		return err
	}
	svc, err := newPlanService(c, db)
	if err != nil {
		return err
	}

	persist := c.Bool("persist") || c.Bool("export")

	var result *domain.PlanResult
	if persist {
		result, err = svc.GeneratePlan(c.Context, s.orgID, s.storeID, s.planDate)
	} else {
		result, err = svc.PreviewPlan(c.Context, s.orgID, s.storeID, s.planDate)
	}
	if err != nil {
		return fmt.Errorf("failed to generate plan: %w", err)
	}

	for _, failure := range result.Failures {
		logger.Log.Warn().Str("product", failure.ProductID).Str("reason", failure.Reason).Msg("product skipped")
	}

	summary := result.Summary()
	logger.Log.Info().
		Str("org", s.orgID).
		Str("store", s.storeID).
		Str("plan_date", s.planDate.Format(domain.PlanDateLayout)).
		Str("generation_id", result.GenerationID).
		Bool("persisted", persist).
		Int("lines", summary.TotalLines).
		Int("lines_to_order", summary.LinesToOrder).
		Float64("total_qty", summary.TotalRecommendedQty).
		Int("failed", summary.FailedProducts).
		Msg("plan generated")

	if out := c.String("out"); out != "" {
		if err := export.WriteFile(out, draftPlan(result)); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}
		logger.Log.Info().Str("file", out).Msg("plan written")
	}

	if c.Bool("export") {
		key, err := svc.ExportPlan(c.Context, s.orgID, s.storeID, s.planDate)
		if err != nil {
			return err
		}
		logger.Log.Info().Str("key", key).Msg("plan exported")
	}

	return nil
}

// draftPlan presents an unsaved result the way a stored draft looks
func draftPlan(result *domain.PlanResult) *domain.Plan {
	return &domain.Plan{
		OrgID:        result.OrgID,
		StoreID:      result.StoreID,
		PlanDate:     result.PlanDate,
		Status:       domain.PlanDraft,
		GenerationID: result.GenerationID,
		Lines:        result.Lines,
		Summary:      result.Summary(),
	}
}

func runExport(c *cli.Context) error {
	db, err := dbFromContext(c)
	if err != nil {
		return err
	}
	s, err := parseScope(c)
	if err != nil {
		return err
	}
	svc, err := newPlanService(c, db)
	if err != nil {
		return err
	}

	if out := c.String("out"); out != "" {
		plan, err := svc.GetPlan(c.Context, s.orgID, s.storeID, s.planDate, nil)
		if err != nil {
			return err
		}
		if err := export.WriteFile(out, plan); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}
		logger.Log.Info().Str("file", out).Int("lines", len(plan.Lines)).Msg("plan written")
		return nil
	}

	key, err := svc.ExportPlan(c.Context, s.orgID, s.storeID, s.planDate)
	if err != nil {
		return err
	}
	logger.Log.Info().Str("key", key).Msg("plan exported")
	return nil
}

func runApprove(c *cli.Context) error {
	db, err := dbFromContext(c)
	if err != nil {
		return err
	}
	s, err := parseScope(c)
	if err != nil {
		return err
	}
	svc, err := newPlanService(c, db)
	if err != nil {
		return err
	}

	return svc.ApprovePlan(c.Context, s.orgID, s.storeID, s.planDate)
}

func parseRuleParams(raw string) (domain.RuleParams, error) {
	params := domain.DefaultRuleParams()
	if strings.TrimSpace(raw) == "" {
		return params, nil
	}
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return params, fmt.Errorf("invalid --params: %w", err)
	}
	return params, nil
}

func runAddRule(c *cli.Context) error {
	db, err := dbFromContext(c)
	if err != nil {
		return err
	}

	params, err := parseRuleParams(c.String("params"))
	if err != nil {
		return err
	}

	orgID := strings.TrimSpace(c.String("org"))
	if productID := strings.TrimSpace(c.String("product")); productID != "" {
		product, err := postgres.NewProductRepository(db).GetProduct(c.Context, orgID, productID)
		if err != nil {
			return err
		}
		if product == nil {
			return fmt.Errorf("product %q not found in org %q", productID, orgID)
		}
	}

	rule := domain.ReplenishmentRule{
		OrgID:      orgID,
		StoreID:    strings.TrimSpace(c.String("store")),
		CategoryID: strings.TrimSpace(c.String("category")),
		ProductID:  strings.TrimSpace(c.String("product")),
		Params:     params,
		Active:     true,
		Priority:   c.Int("priority"),
	}

	rule, err = postgres.NewRuleRepository(db).CreateRule(c.Context, rule)
	if err != nil {
		return err
	}

	// Cached rule sets of the org are stale now
	if err := newRuleCache(config.Load().Cache).InvalidateOrg(c.Context, rule.OrgID); err != nil {
		logger.Log.Warn().Err(err).Str("org", rule.OrgID).Msg("failed to invalidate rule cache")
	}

	logger.Log.Info().
		Int64("id", rule.ID).
		Str("org", rule.OrgID).
		Str("specificity", rule.Specificity().String()).
		Msg("rule created")
	return nil
}

func runInvalidateRules(c *cli.Context) error {
	orgID := strings.TrimSpace(c.String("org"))
	all := c.Bool("all")
	if (orgID == "") == !all {
		return errors.New("use exactly one of --org or --all")
	}

	cfg := config.Load().Cache
	if !cfg.Enabled {
		logger.Log.Info().Msg("rule cache is disabled, nothing to invalidate")
		return nil
	}
	ruleCache, err := cache.NewRuleSetCache(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to rule cache: %w", err)
	}

	if all {
		dropped, err := ruleCache.InvalidateAll(c.Context)
		if err != nil {
			return err
		}
		logger.Log.Info().Int("rule_sets", dropped).Msg("rule cache cleared")
		return nil
	}

	if err := ruleCache.InvalidateOrg(c.Context, orgID); err != nil {
		return err
	}
	logger.Log.Info().Str("org", orgID).Msg("rule cache invalidated")
	return nil
}

// readPayload returns the JSON given inline with --json or read from --file
func readPayload(inline, file string) ([]byte, error) {
	switch {
	case inline != "" && file != "":
		return nil, errors.New("use either --json or --file, not both")
	case inline != "":
		return []byte(inline), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		return data, nil
	}
	return nil, errors.New("one of --json or --file is required")
}

// parseProducts decodes a JSON array of products for orgID. Status defaults
// to active and mgmt_mode to managed.
func parseProducts(orgID string, payload []byte) ([]domain.Product, error) {
	var products []domain.Product
	if err := json.Unmarshal(payload, &products); err != nil {
		return nil, fmt.Errorf("invalid products payload: %w", err)
	}
	if len(products) == 0 {
		return nil, errors.New("no products in payload")
	}

	for i := range products {
		p := &products[i]
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			return nil, fmt.Errorf("product #%d: id is required", i+1)
		}
		if p.OrgID != "" && p.OrgID != orgID {
			return nil, fmt.Errorf("product %s belongs to org %q, not %q", p.ID, p.OrgID, orgID)
		}
		p.OrgID = orgID
		if p.Status == "" {
			p.Status = domain.ProductActive
		}
		if p.MgmtMode == "" {
			p.MgmtMode = domain.MgmtManaged
		}
		if !p.Status.Valid() {
			return nil, fmt.Errorf("product %s: unknown status %q", p.ID, p.Status)
		}
		if !p.MgmtMode.Valid() {
			return nil, fmt.Errorf("product %s: unknown mgmt_mode %q", p.ID, p.MgmtMode)
		}
	}
	return products, nil
}

func runUpsertProducts(c *cli.Context) error {
	db, err := dbFromContext(c)
	if err != nil {
		return err
	}

	payload, err := readPayload(c.String("json"), c.String("file"))
	if err != nil {
		return err
	}
	orgID := strings.TrimSpace(c.String("org"))
	products, err := parseProducts(orgID, payload)
	if err != nil {
		return err
	}

	if err := postgres.UpsertProducts(c.Context, db, products); err != nil {
		return err
	}
	logger.Log.Info().Str("org", orgID).Int("products", len(products)).Msg("products upserted")
	return nil
}

type snapshotInput struct {
	ProductID     string   `json:"product_id"`
	StoreID       string   `json:"store_id"`
	Date          string   `json:"date"`
	PhysicalStock *float64 `json:"physical_stock"`
}

// parseSnapshots decodes a JSON array of stock counts for orgID. Entries
// without store_id fall back to defaultStore.
func parseSnapshots(orgID, defaultStore string, payload []byte) ([]domain.InventorySnapshot, error) {
	var inputs []snapshotInput
	if err := json.Unmarshal(payload, &inputs); err != nil {
		return nil, fmt.Errorf("invalid snapshots payload: %w", err)
	}
	if len(inputs) == 0 {
		return nil, errors.New("no snapshots in payload")
	}

	snapshots := make([]domain.InventorySnapshot, 0, len(inputs))
	for i, in := range inputs {
		productID := strings.TrimSpace(in.ProductID)
		if productID == "" {
			return nil, fmt.Errorf("snapshot #%d: product_id is required", i+1)
		}
		storeID := strings.TrimSpace(in.StoreID)
		if storeID == "" {
			storeID = defaultStore
		}
		if storeID == "" {
			return nil, fmt.Errorf("snapshot #%d: store_id is required without --store", i+1)
		}
		date, err := time.Parse(domain.PlanDateLayout, in.Date)
		if err != nil {
			return nil, fmt.Errorf("snapshot #%d: invalid date %q, expected YYYY-MM-DD", i+1, in.Date)
		}
		if in.PhysicalStock == nil {
			return nil, fmt.Errorf("snapshot #%d: physical_stock is required", i+1)
		}

		snapshots = append(snapshots, domain.InventorySnapshot{
			OrgID:         orgID,
			ProductID:     productID,
			StoreID:       storeID,
			Date:          date,
			PhysicalStock: *in.PhysicalStock,
		})
	}
	return snapshots, nil
}

func runAddSnapshots(c *cli.Context) error {
	db, err := dbFromContext(c)
	if err != nil {
		return err
	}

	payload, err := readPayload(c.String("json"), c.String("file"))
	if err != nil {
		return err
	}
	orgID := strings.TrimSpace(c.String("org"))
	snapshots, err := parseSnapshots(orgID, strings.TrimSpace(c.String("store")), payload)
	if err != nil {
		return err
	}

	if err := postgres.NewSnapshotRepository(db).SaveSnapshots(c.Context, snapshots); err != nil {
		return err
	}
	logger.Log.Info().Str("org", orgID).Int("snapshots", len(snapshots)).Msg("snapshots saved")
	return nil
}

func runListExports(c *cli.Context) error {
	db, err := dbFromContext(c)
	if err != nil {
		return err
	}
	s, err := parseScope(c)
	if err != nil {
		return err
	}
	svc, err := newPlanService(c, db)
	if err != nil {
		return err
	}

	exports, err := svc.ListExports(c.Context, s.orgID, s.storeID)
	if err != nil {
		return err
	}
	for _, e := range exports {
		fmt.Fprintf(c.App.Writer, "%s\t%s\t%d\n", e.PlanDate.Format(domain.PlanDateLayout), e.Key, e.Size)
	}
	logger.Log.Info().Str("org", s.orgID).Str("store", s.storeID).Int("exports", len(exports)).Msg("exports listed")
	return nil
}

func runDownloadExport(c *cli.Context) error {
	db, err := dbFromContext(c)
	if err != nil {
		return err
	}
	s, err := parseScope(c)
	if err != nil {
		return err
	}
	svc, err := newPlanService(c, db)
	if err != nil {
		return err
	}

	key, err := svc.DownloadExport(c.Context, s.orgID, s.storeID, s.planDate, c.String("out"))
	if err != nil {
		return err
	}
	logger.Log.Info().Str("key", key).Str("file", c.String("out")).Msg("export downloaded")
	return nil
}

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
)

func TestParseRuleParams(t *testing.T) {
	params, err := parseRuleParams(`{"days_of_cover":14,"pack_size":6,"seasonality":{"nov_dec":1.5}}`)
	if err != nil {
		t.Fatalf("parseRuleParams returned error: %v", err)
	}
	if params.DaysOfCover != 14 || params.PackSize != 6 {
		t.Errorf("Unexpected params: %+v", params)
	}
	if params.LeadTimeDays != domain.DefaultLeadTimeDays {
		t.Errorf("Expected omitted fields to keep defaults, got lead time %v", params.LeadTimeDays)
	}
	if params.Seasonality.NovDec == nil || *params.Seasonality.NovDec != 1.5 {
		t.Errorf("Expected nov_dec multiplier, got %+v", params.Seasonality)
	}

	if _, err := parseRuleParams(`{"days_of_cover":`); err == nil {
		t.Error("Expected an error for malformed JSON")
	}

	params, err = parseRuleParams("  ")
	if err != nil {
		t.Fatalf("parseRuleParams returned error: %v", err)
	}
	if params.DaysOfCover != domain.DefaultDaysOfCover {
		t.Errorf("Expected defaults for blank params, got %+v", params)
	}
}

func TestDraftPlan(t *testing.T) {
	result := &domain.PlanResult{
		OrgID:        "org-1",
		StoreID:      "store-1",
		PlanDate:     time.Date(2025, time.March, 20, 0, 0, 0, 0, time.UTC),
		GenerationID: "gen-1",
		Lines: []domain.PlanLine{
			{ProductID: "p1", RecommendedQty: 60},
			{ProductID: "p2", RecommendedQty: 0},
		},
		Failures: []domain.LineFailure{{ProductID: "p3", Reason: "query failed"}},
	}

	plan := draftPlan(result)
	if plan.Status != domain.PlanDraft || plan.GenerationID != "gen-1" {
		t.Errorf("Unexpected plan header: %+v", plan)
	}
	if plan.Summary.LinesToOrder != 1 || plan.Summary.FailedProducts != 1 {
		t.Errorf("Unexpected summary: %+v", plan.Summary)
	}
}

func TestReadPayload(t *testing.T) {
	file := filepath.Join(t.TempDir(), "products.json")
	if err := os.WriteFile(file, []byte(`[{"id":"p1"}]`), 0o644); err != nil {
		t.Fatalf("WriteFile returned error: %v", err)
	}

	tests := []struct {
		name     string
		inline   string
		file     string
		expected string
		errPart  string
	}{
		{name: "inline", inline: `[]`, expected: `[]`},
		{name: "file", file: file, expected: `[{"id":"p1"}]`},
		{name: "both", inline: `[]`, file: file, errPart: "not both"},
		{name: "neither", errPart: "required"},
		{name: "missing_file", file: filepath.Join(t.TempDir(), "nope.json"), errPart: "failed to read"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readPayload(tt.inline, tt.file)
			if tt.errPart != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errPart) {
					t.Fatalf("Expected error containing %q, got %v", tt.errPart, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("readPayload returned error: %v", err)
			}
			if string(got) != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestParseProducts(t *testing.T) {
	products, err := parseProducts("org-1", []byte(`[
		{"id":" p1 ","name":"Rose","category_id":"flowers"},
		{"id":"p2","org_id":"org-1","status":"discontinued","mgmt_mode":"unmanaged"}
	]`))
	if err != nil {
		t.Fatalf("parseProducts returned error: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("Expected 2 products, got %d", len(products))
	}
	if p := products[0]; p.ID != "p1" || p.OrgID != "org-1" || p.Status != domain.ProductActive || p.MgmtMode != domain.MgmtManaged {
		t.Errorf("Expected defaults on the first product, got %+v", p)
	}
	if p := products[1]; p.Status != domain.ProductDiscontinued || p.MgmtMode != domain.MgmtUnmanaged {
		t.Errorf("Expected explicit values to be kept, got %+v", p)
	}

	invalid := []struct {
		name    string
		payload string
		errPart string
	}{
		{name: "malformed", payload: `[{"id":`, errPart: "invalid products payload"},
		{name: "empty", payload: `[]`, errPart: "no products"},
		{name: "missing_id", payload: `[{"name":"Rose"}]`, errPart: "id is required"},
		{name: "foreign_org", payload: `[{"id":"p1","org_id":"org-2"}]`, errPart: "belongs to org"},
		{name: "unknown_status", payload: `[{"id":"p1","status":"retired"}]`, errPart: "unknown status"},
		{name: "unknown_mode", payload: `[{"id":"p1","mgmt_mode":"manual"}]`, errPart: "unknown mgmt_mode"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseProducts("org-1", []byte(tt.payload))
			if err == nil || !strings.Contains(err.Error(), tt.errPart) {
				t.Errorf("Expected error containing %q, got %v", tt.errPart, err)
			}
		})
	}
}

func TestParseSnapshots(t *testing.T) {
	snapshots, err := parseSnapshots("org-1", "store-1", []byte(`[
		{"product_id":"p1","date":"2025-03-19","physical_stock":42},
		{"product_id":"p1","store_id":"store-2","date":"2025-03-19","physical_stock":0}
	]`))
	if err != nil {
		t.Fatalf("parseSnapshots returned error: %v", err)
	}
	if len(snapshots) != 2 {
		t.Fatalf("Expected 2 snapshots, got %d", len(snapshots))
	}
	first := snapshots[0]
	if first.OrgID != "org-1" || first.StoreID != "store-1" || first.PhysicalStock != 42 {
		t.Errorf("Unexpected first snapshot: %+v", first)
	}
	if !first.Date.Equal(time.Date(2025, time.March, 19, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected date: %s", first.Date)
	}
	if snapshots[1].StoreID != "store-2" || snapshots[1].PhysicalStock != 0 {
		t.Errorf("Expected explicit store and zero stock to be kept, got %+v", snapshots[1])
	}

	invalid := []struct {
		name    string
		store   string
		payload string
		errPart string
	}{
		{name: "malformed", store: "store-1", payload: `{`, errPart: "invalid snapshots payload"},
		{name: "empty", store: "store-1", payload: `[]`, errPart: "no snapshots"},
		{name: "missing_product", store: "store-1", payload: `[{"date":"2025-03-19","physical_stock":1}]`, errPart: "product_id is required"},
		{name: "missing_store", payload: `[{"product_id":"p1","date":"2025-03-19","physical_stock":1}]`, errPart: "store_id is required"},
		{name: "bad_date", store: "store-1", payload: `[{"product_id":"p1","date":"19/03/2025","physical_stock":1}]`, errPart: "invalid date"},
		{name: "missing_stock", store: "store-1", payload: `[{"product_id":"p1","date":"2025-03-19"}]`, errPart: "physical_stock is required"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSnapshots("org-1", tt.store, []byte(tt.payload))
			if err == nil || !strings.Contains(err.Error(), tt.errPart) {
				t.Errorf("Expected error containing %q, got %v", tt.errPart, err)
			}
		})
	}
}

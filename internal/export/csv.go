package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
	"github.com/andresuchdata/autopo-py/replenishment/internal/storage"
)

const csvContentType = "text/csv"

var csvHeader = []string{
	"Product ID", "Product Name", "Store", "Plan Date",
	"Current Stock", "Target Stock", "Avg Daily Demand", "Seasonality Factor",
	"Recommended Qty", "Days Of Cover", "Min Stock", "Max Stock",
	"Reason", "Status",
}

// WritePlanCSV writes one row per plan line
func WritePlanCSV(w io.Writer, plan *domain.Plan) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	planDate := plan.PlanDate.Format(domain.PlanDateLayout)
	for _, line := range plan.Lines {
		record := []string{
			line.ProductID,
			line.ProductName,
			line.StoreID,
			planDate,
			formatQty(line.CurrentStock),
			formatQty(line.TargetStock),
			fmt.Sprintf("%.2f", line.AvgDailyDemand),
			fmt.Sprintf("%.2f", line.SeasonalityFactor),
			formatQty(line.RecommendedQty),
			formatQty(line.DaysOfCover),
			formatOptional(line.MinStock),
			formatOptional(line.MaxStock),
			line.Reason,
			line.Status.Label(),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatQty(*v)
}

// ObjectKey returns the storage key of a plan export
func ObjectKey(prefix string, key domain.PlanKey) string {
	name := key.PlanDate.Format(domain.PlanDateLayout) + ".csv"
	return path.Join(prefix, key.OrgID, key.StoreID, name)
}

// WriteFile exports plan to a local CSV file
func WriteFile(dest string, plan *domain.Plan) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed creating directory for %s: %w", dest, err)
	}

	file, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer file.Close()

	return WritePlanCSV(file, plan)
}

// Exporter uploads plan CSVs to object storage
type Exporter struct {
	storage storage.ObjectStorage
	prefix  string
}

func NewExporter(store storage.ObjectStorage, prefix string) *Exporter {
	return &Exporter{storage: store, prefix: prefix}
}

// Export uploads plan and returns its object key
func (e *Exporter) Export(ctx context.Context, plan *domain.Plan) (string, error) {
	var buf bytes.Buffer
	if err := WritePlanCSV(&buf, plan); err != nil {
		return "", fmt.Errorf("failed to render plan csv: %w", err)
	}

	key := ObjectKey(e.prefix, domain.PlanKey{OrgID: plan.OrgID, StoreID: plan.StoreID, PlanDate: plan.PlanDate})
	if err := e.storage.UploadObject(ctx, key, buf.Bytes(), csvContentType); err != nil {
		return "", err
	}

	return key, nil
}

// ExportedPlan is a plan CSV held in object storage
type ExportedPlan struct {
	Key      string    `json:"key"`
	PlanDate time.Time `json:"plan_date"`
	Size     int64     `json:"size"`
}

// List returns the exported plans of a store, newest plan date first.
// Objects under the store prefix that are not plan CSVs are skipped.
func (e *Exporter) List(ctx context.Context, orgID, storeID string) ([]ExportedPlan, error) {
	prefix := path.Join(e.prefix, orgID, storeID) + "/"
	objects, err := e.storage.ListObjects(ctx, prefix)
	if err != nil {
		return nil, err
	}

	exports := make([]ExportedPlan, 0, len(objects))
	for _, object := range objects {
		name := strings.TrimPrefix(object.Key, prefix)
		if strings.Contains(name, "/") || !strings.HasSuffix(name, ".csv") {
			continue
		}
		date, err := time.Parse(domain.PlanDateLayout, strings.TrimSuffix(name, ".csv"))
		if err != nil {
			continue
		}
		exports = append(exports, ExportedPlan{Key: object.Key, PlanDate: date, Size: object.Size})
	}

	sort.Slice(exports, func(i, j int) bool {
		return exports[i].PlanDate.After(exports[j].PlanDate)
	})
	return exports, nil
}

// Download copies the exported plan of key to dest and returns its object key
func (e *Exporter) Download(ctx context.Context, key domain.PlanKey, dest string) (string, error) {
	objectKey := ObjectKey(e.prefix, key)
	if err := e.storage.DownloadObject(ctx, objectKey, dest); err != nil {
		return "", err
	}
	return objectKey, nil
}

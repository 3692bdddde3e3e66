package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
	"github.com/andresuchdata/autopo-py/replenishment/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type PlanHandler struct {
	service *service.PlanService
}

func NewPlanHandler(service *service.PlanService) *PlanHandler {
	return &PlanHandler{service: service}
}

type planScope struct {
	orgID    string
	storeID  string
	planDate time.Time
}

func parseScope(c *gin.Context) (planScope, bool) {
	scope := planScope{
		orgID:   strings.TrimSpace(c.Param("org")),
		storeID: strings.TrimSpace(c.Param("store")),
	}
	if scope.orgID == "" || scope.storeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "org and store are required"})
		return scope, false
	}

	date, err := time.Parse(domain.PlanDateLayout, c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan date, expected YYYY-MM-DD", "details": err.Error()})
		return scope, false
	}
	scope.planDate = date

	return scope, true
}

func parseLineFilter(c *gin.Context) *domain.PlanLineFilter {
	filter := &domain.PlanLineFilter{}

	if toOrder, err := strconv.ParseBool(c.DefaultQuery("to_order", "false")); err == nil {
		filter.OnlyToOrder = toOrder
	}

	// Support repeated params and comma-separated lists:
	//   ?product_id=A&product_id=B
	//   ?product_ids=A,B
	single, multi := c.QueryArray("product_id"), c.QueryArray("product_ids")
	raw := make([]string, 0, len(single)+len(multi))
	raw = append(raw, single...)
	raw = append(raw, multi...)
	seen := make(map[string]struct{})
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, ok := seen[part]; ok {
				continue
			}
			seen[part] = struct{}{}
			filter.ProductIDs = append(filter.ProductIDs, part)
		}
	}

	if !filter.OnlyToOrder && len(filter.ProductIDs) == 0 {
		return nil
	}
	return filter
}

func writeError(c *gin.Context, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrPlanNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrPlanLocked), errors.Is(err, domain.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrStorageDisabled):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrQuery):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg(message)
	}
	c.JSON(status, gin.H{"error": message, "details": err.Error()})
}

// GeneratePlan computes and stores the draft plan
func (h *PlanHandler) GeneratePlan(c *gin.Context) {
	scope, ok := parseScope(c)
	if !ok {
		return
	}

	result, err := h.service.GeneratePlan(c.Request.Context(), scope.orgID, scope.storeID, scope.planDate)
	if err != nil {
		writeError(c, "failed to generate plan", err)
		return
	}

	failures := result.Failures
	if failures == nil {
		failures = []domain.LineFailure{}
	}

	c.JSON(http.StatusCreated, gin.H{
		"org_id":        result.OrgID,
		"store_id":      result.StoreID,
		"plan_date":     result.PlanDate.Format(domain.PlanDateLayout),
		"generation_id": result.GenerationID,
		"status":        domain.PlanDraft,
		"lines":         result.Lines,
		"failures":      failures,
		"summary":       result.Summary(),
	})
}

// GetPlan returns the stored plan
func (h *PlanHandler) GetPlan(c *gin.Context) {
	scope, ok := parseScope(c)
	if !ok {
		return
	}

	plan, err := h.service.GetPlan(c.Request.Context(), scope.orgID, scope.storeID, scope.planDate, parseLineFilter(c))
	if err != nil {
		writeError(c, "failed to fetch plan", err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

func (h *PlanHandler) ApprovePlan(c *gin.Context) {
	scope, ok := parseScope(c)
	if !ok {
		return
	}

	if err := h.service.ApprovePlan(c.Request.Context(), scope.orgID, scope.storeID, scope.planDate); err != nil {
		writeError(c, "failed to approve plan", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": domain.PlanApproved, "label": domain.PlanApproved.Label()})
}

func (h *PlanHandler) ConvertPlan(c *gin.Context) {
	scope, ok := parseScope(c)
	if !ok {
		return
	}

	if err := h.service.ConvertPlanToPO(c.Request.Context(), scope.orgID, scope.storeID, scope.planDate); err != nil {
		writeError(c, "failed to convert plan", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": domain.PlanConvertedToPO, "label": domain.PlanConvertedToPO.Label()})
}

func (h *PlanHandler) ExportPlan(c *gin.Context) {
	scope, ok := parseScope(c)
	if !ok {
		return
	}

	key, err := h.service.ExportPlan(c.Request.Context(), scope.orgID, scope.storeID, scope.planDate)
	if err != nil {
		writeError(c, "failed to export plan", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"key": key})
}

// ListExports returns the plan CSVs exported for a store
func (h *PlanHandler) ListExports(c *gin.Context) {
	orgID := strings.TrimSpace(c.Param("org"))
	storeID := strings.TrimSpace(c.Param("store"))
	if orgID == "" || storeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "org and store are required"})
		return
	}

	exports, err := h.service.ListExports(c.Request.Context(), orgID, storeID)
	if err != nil {
		writeError(c, "failed to list exports", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"exports": exports, "count": len(exports)})
}

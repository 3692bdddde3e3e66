package domain

import "strings"

// PlanStatus is the lifecycle status of a replenishment plan
type PlanStatus string

const (
	PlanDraft         PlanStatus = "draft"
	PlanApproved      PlanStatus = "approved"
	PlanConvertedToPO PlanStatus = "converted_to_po"
)

var planStatusLabels = map[PlanStatus]string{
	PlanDraft:         "Draft",
	PlanApproved:      "Approved",
	PlanConvertedToPO: "Converted to PO",
}

var planTransitions = map[PlanStatus]PlanStatus{
	PlanDraft:    PlanApproved,
	PlanApproved: PlanConvertedToPO,
}

// Label returns a human-readable label for a plan status.
func (s PlanStatus) Label() string {
	if label, ok := planStatusLabels[s]; ok {
		return label
	}

	return "Unknown"
}

// Locked reports whether a plan in this status may no longer be regenerated.
func (s PlanStatus) Locked() bool {
	return s == PlanApproved || s == PlanConvertedToPO
}

// CanTransitionTo reports whether next directly follows s.
func (s PlanStatus) CanTransitionTo(next PlanStatus) bool {
	return planTransitions[s] == next
}

// ParsePlanStatus returns the status for a given value (case-insensitive).
func ParsePlanStatus(value string) (PlanStatus, bool) {
	s := PlanStatus(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := planStatusLabels[s]; ok {
		return s, true
	}

	return "", false
}

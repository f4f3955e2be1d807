package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is how completion dates are written to every output file.
const DateLayout = "01/02/2006"

// Export column names
const (
	ColAssignees     = "Assignees"
	ColGroup         = "Group"
	ColCompletedDate = "Completed date"
	ColProperty      = "Property"
	ColTaskTitle     = "Task title"
	ColTotalCost     = "Total cost"
	ColRatePaid      = "Rate paid"
	ColTaskID        = "Task ID"
	ColStatus        = "Status"
	ColReservationID = "Reservation ID"
	ColTaskTags      = "Task tags"
	ColAmountDue     = "Amount due"
	ColIssue         = "Issue"
)

// TaskColumns is the column order of vendor files; the issues report appends Issue.
var TaskColumns = []string{
	ColAssignees, ColGroup, ColCompletedDate, ColProperty, ColTaskTitle,
	ColTotalCost, ColRatePaid, ColTaskID, ColStatus, ColReservationID,
	ColTaskTags, ColAmountDue,
}

// Task is one normalized housekeeping task. Empty strings stand for absent
// values in the export.
type Task struct {
	Assignees     string              `json:"assignees"`
	Group         string              `json:"group"`
	CompletedDate time.Time           `json:"completed_date"`
	Property      string              `json:"property"`
	Title         string              `json:"task_title"`
	TotalCost     decimal.NullDecimal `json:"total_cost"`
	RatePaid      decimal.NullDecimal `json:"rate_paid"`
	TaskID        string              `json:"task_id"`
	Status        string              `json:"status"`
	ReservationID string              `json:"reservation_id"`
	Tags          string              `json:"task_tags"`

	// Derived during normalization
	AmountDue              decimal.Decimal `json:"amount_due"`
	EffectiveReservationID string          `json:"effective_reservation_id"`
	UnitCode               string          `json:"unit_code"`
	CleanType              string          `json:"clean_type"`
	// A cost cell held text that is not a non-negative amount; it was read
	// as blank.
	UnreadableCost bool `json:"unreadable_cost,omitempty"`
}

// HasCost reports whether either cost field was filled in.
func (t Task) HasCost() bool {
	return t.TotalCost.Valid || t.RatePaid.Valid
}

// CostMissing reports whether the task has no usable cost: nothing was
// entered, or an entered cost could not be read.
func (t Task) CostMissing() bool {
	return !t.HasCost() || t.UnreadableCost
}

// Row renders the task in TaskColumns order. Reservation ID carries the
// effective reservation id.
func (t Task) Row() []string {
	return []string{
		t.Assignees,
		t.Group,
		t.CompletedDate.Format(DateLayout),
		t.Property,
		t.Title,
		formatNullable(t.TotalCost),
		formatNullable(t.RatePaid),
		t.TaskID,
		t.Status,
		t.EffectiveReservationID,
		t.Tags,
		t.AmountDue.StringFixed(2),
	}
}

func formatNullable(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.StringFixed(2)
}

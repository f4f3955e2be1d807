package model

import "github.com/shopspring/decimal"

// Label names one detected problem.
type Label string

const (
	LabelMissingAssignee       Label = "Missing_Assignee"
	LabelMultipleAssignees     Label = "Multiple_Assignees"
	LabelMissingReservationTag Label = "Missing_Reservation_Tag"
	LabelInvalidStatus         Label = "Invalid_Status"
	LabelMissingCost           Label = "Missing_Cost"
	LabelDuplicateReservation  Label = "Duplicate_Reservation"
	LabelInvalidClean          Label = "Invalid_Clean"
	LabelPriceNotEstablished   Label = "Price_For_Unit_Code_Not_Established"
	LabelPriceNotFound         Label = "Price_Not_Found"

	priceSetAtPrefix = "Price_Set_At_"
)

// PriceSetAt is the label for a task billed at something other than its
// established price.
func PriceSetAt(expected decimal.Decimal) Label {
	return Label(priceSetAtPrefix + expected.StringFixed(2))
}

// Issue is a copy of a task tagged with exactly one label. A task with
// several problems yields several issues.
type Issue struct {
	Label Label `json:"issue"`
	Task  Task  `json:"task"`
}

// Row renders the issue as a task row followed by its label.
func (i Issue) Row() []string {
	return append(i.Task.Row(), string(i.Label))
}

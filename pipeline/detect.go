package pipeline

import (
	"strings"

	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/model"
)

// Rule names, in report order.
const (
	RuleMissingAssignee       = "missing_assignee"
	RuleMultipleAssignees     = "multiple_assignees"
	RuleMissingReservationTag = "missing_reservation_tag"
	RuleInvalidStatus         = "invalid_status"
	RuleMissingCost           = "missing_cost"
	RuleDuplicateReservation  = "duplicate_reservation"
	RuleInvalidClean          = "invalid_clean"
	RulePricing               = "pricing"
)

// Rule flags every task matching its predicate with a single label.
type Rule struct {
	Name  string
	Label model.Label
	Match func(model.Task) bool
}

// RuleResult is the tagged subset one rule produced.
type RuleResult struct {
	Name   string        `json:"rule"`
	Issues []model.Issue `json:"issues"`
}

// Detector runs the record-level checks.
type Detector struct {
	cleanTypes        *model.CleanTypeList
	validStatuses     map[string]bool
	assigneeDelimiter string
}

func NewDetector(cleanTypes *model.CleanTypeList, validStatuses []string, assigneeDelimiter string) *Detector {
	statuses := make(map[string]bool, len(validStatuses))
	for _, s := range validStatuses {
		statuses[s] = true
	}
	return &Detector{
		cleanTypes:        cleanTypes,
		validStatuses:     statuses,
		assigneeDelimiter: assigneeDelimiter,
	}
}

// Rules returns the seven checks for this batch. The duplicate check needs
// the whole batch, so the rules are bound to it.
func (d *Detector) Rules(tasks []model.Task) []Rule {
	shared := make(map[string]int)
	for _, t := range tasks {
		if t.EffectiveReservationID != "" {
			shared[t.EffectiveReservationID]++
		}
	}

	return []Rule{
		{RuleMissingAssignee, model.LabelMissingAssignee, func(t model.Task) bool {
			return t.Assignees == ""
		}},
		{RuleMultipleAssignees, model.LabelMultipleAssignees, func(t model.Task) bool {
			return d.assigneeDelimiter != "" && strings.Contains(t.Assignees, d.assigneeDelimiter)
		}},
		{RuleMissingReservationTag, model.LabelMissingReservationTag, func(t model.Task) bool {
			return t.EffectiveReservationID == ""
		}},
		{RuleInvalidStatus, model.LabelInvalidStatus, func(t model.Task) bool {
			return !d.validStatuses[t.Status]
		}},
		{RuleMissingCost, model.LabelMissingCost, func(t model.Task) bool {
			return t.CostMissing()
		}},
		{RuleDuplicateReservation, model.LabelDuplicateReservation, func(t model.Task) bool {
			return t.EffectiveReservationID != "" && shared[t.EffectiveReservationID] > 1
		}},
		{RuleInvalidClean, model.LabelInvalidClean, func(t model.Task) bool {
			return !d.cleanTypes.Contains(t.CleanType)
		}},
	}
}

// Detect applies every rule to the full batch.
func (d *Detector) Detect(tasks []model.Task) []RuleResult {
	rules := d.Rules(tasks)
	results := make([]RuleResult, 0, len(rules))
	for _, rule := range rules {
		results = append(results, apply(rule, tasks))
	}
	return results
}

func apply(rule Rule, tasks []model.Task) RuleResult {
	res := RuleResult{Name: rule.Name}
	for _, t := range tasks {
		if rule.Match(t) {
			res.Issues = append(res.Issues, model.Issue{Label: rule.Label, Task: t})
		}
	}
	return res
}

// Package pipeline is the audit engine: it normalizes a task export, runs
// the record checks and the price reconciliation, and shapes the results
// into the issues report, vendor files and accounting feed. Every function
// here is a pure function of its inputs.
package pipeline

import (
	"sort"

	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/model"
	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/pkg/tabular"
	"github.com/shopspring/decimal"
)

// Options are the per-run rule settings.
type Options struct {
	Window              Window
	ReservationKeywords []string
	ValidStatuses       []string
	AssigneeDelimiter   string
}

// Result is everything one audit produced.
type Result struct {
	Tasks  []model.Task
	Rules  []RuleResult // seven record checks then pricing
	Issues []model.Issue
}

// Audit runs the full check over an export.
func Audit(export *tabular.Table, refs *References, opts Options) (*Result, error) {
	tasks, err := Normalize(export, NormalizeOptions{
		Ignore:              refs.Ignore,
		Window:              opts.Window,
		ReservationKeywords: opts.ReservationKeywords,
	})
	if err != nil {
		return nil, err
	}

	detector := NewDetector(refs.CleanTypes, opts.ValidStatuses, opts.AssigneeDelimiter)
	reconciler := NewReconciler(refs.Prices, refs.CleanTypes)

	rules := append(detector.Detect(tasks), reconciler.Reconcile(tasks))
	return &Result{
		Tasks:  tasks,
		Rules:  rules,
		Issues: Aggregate(rules),
	}, nil
}

// Mispriced returns the task ids the price reconciler flagged.
func (r *Result) Mispriced() map[string]bool {
	ids := make(map[string]bool)
	for _, rr := range r.Rules {
		if rr.Name != RulePricing {
			continue
		}
		for _, is := range rr.Issues {
			ids[is.Task.TaskID] = true
		}
	}
	return ids
}

// Summarize computes the headline numbers shown for a run.
func Summarize(tasks []model.Task) model.Summary {
	properties := make(map[string]bool)
	vendors := make(map[string]bool)
	total := decimal.Zero
	for _, t := range tasks {
		properties[t.Property] = true
		if t.Assignees != "" {
			vendors[t.Assignees] = true
		}
		total = total.Add(t.AmountDue)
	}
	return model.Summary{
		Tasks:      len(tasks),
		Properties: len(properties),
		Vendors:    len(vendors),
		AmountDue:  total,
	}
}

// VendorGroup is the tasks of one assignee, for that vendor's invoice file.
type VendorGroup struct {
	Name  string
	Tasks []model.Task
}

// GroupByVendor splits tasks by exact assignee string, sorted by name.
// Tasks without an assignee belong to no vendor.
func GroupByVendor(tasks []model.Task) []VendorGroup {
	index := make(map[string]int)
	var groups []VendorGroup
	for _, t := range tasks {
		if t.Assignees == "" {
			continue
		}
		i, ok := index[t.Assignees]
		if !ok {
			i = len(groups)
			index[t.Assignees] = i
			groups = append(groups, VendorGroup{Name: t.Assignees})
		}
		groups[i].Tasks = append(groups[i].Tasks, t)
	}
	sort.Slice(groups, func(a, b int) bool { return groups[a].Name < groups[b].Name })
	return groups
}

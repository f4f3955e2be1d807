package pipeline

import (
	"sort"
	"strconv"

	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/model"
)

// Aggregate concatenates rule results in the order given and sorts the rows
// by task id. Nothing is de-duplicated: a task with three problems appears
// three times.
func Aggregate(results []RuleResult) []model.Issue {
	var n int
	for _, r := range results {
		n += len(r.Issues)
	}

	issues := make([]model.Issue, 0, n)
	for _, r := range results {
		issues = append(issues, r.Issues...)
	}

	sort.SliceStable(issues, func(a, b int) bool {
		return LessTaskID(issues[a].Task.TaskID, issues[b].Task.TaskID)
	})
	return issues
}

// LessTaskID orders integer ids numerically and anything else lexically;
// integers sort before non-integers.
func LessTaskID(a, b string) bool {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}

// LabelCount is the number of issue rows carrying one label.
type LabelCount struct {
	Label model.Label `json:"label"`
	Count int         `json:"count"`
}

// CountByLabel tallies issues per label in order of first appearance.
func CountByLabel(issues []model.Issue) []LabelCount {
	index := make(map[model.Label]int)
	var counts []LabelCount
	for _, is := range issues {
		i, ok := index[is.Label]
		if !ok {
			i = len(counts)
			index[is.Label] = i
			counts = append(counts, LabelCount{Label: is.Label})
		}
		counts[i].Count++
	}
	return counts
}

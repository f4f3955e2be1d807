package pipeline

import (
	"testing"

	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/model"
	"github.com/stretchr/testify/assert"
)

func issue(label model.Label, id string) model.Issue {
	return model.Issue{Label: label, Task: model.Task{TaskID: id}}
}

func TestAggregate(t *testing.T) {
	results := []RuleResult{
		{Name: RuleMissingAssignee, Issues: []model.Issue{issue(model.LabelMissingAssignee, "10")}},
		{Name: RuleMissingCost, Issues: []model.Issue{issue(model.LabelMissingCost, "2"), issue(model.LabelMissingCost, "10")}},
		{Name: RuleInvalidClean},
		{Name: RulePricing, Issues: []model.Issue{issue(model.LabelPriceNotFound, "2")}},
	}

	issues := Aggregate(results)

	assert.Len(t, issues, 4)
	var got []string
	for _, is := range issues {
		got = append(got, is.Task.TaskID+":"+string(is.Label))
	}
	// numeric id order; ties keep rule order
	assert.Equal(t, []string{
		"2:Missing_Cost",
		"2:Price_Not_Found",
		"10:Missing_Assignee",
		"10:Missing_Cost",
	}, got)
}

func TestAggregateEmpty(t *testing.T) {
	assert.Empty(t, Aggregate(nil))
	assert.Empty(t, Aggregate([]RuleResult{{Name: RuleMissingAssignee}}))
}

func TestLessTaskID(t *testing.T) {
	assert.True(t, LessTaskID("9", "10"))
	assert.False(t, LessTaskID("10", "9"))
	assert.True(t, LessTaskID("100", "A-1"))
	assert.True(t, LessTaskID("A-1", "B-1"))
	assert.False(t, LessTaskID("B-1", "7"))
}

func TestCountByLabel(t *testing.T) {
	counts := CountByLabel([]model.Issue{
		issue(model.LabelMissingCost, "1"),
		issue(model.LabelInvalidClean, "1"),
		issue(model.LabelMissingCost, "2"),
	})

	assert.Equal(t, []LabelCount{
		{Label: model.LabelMissingCost, Count: 2},
		{Label: model.LabelInvalidClean, Count: 1},
	}, counts)
}

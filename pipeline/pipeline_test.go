package pipeline

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/model"
	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/pkg/tabular"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// randomExport builds a seeded export mixing valid and broken tasks.
func randomExport(seed int64, n int) *tabular.Table {
	faker := gofakeit.New(seed)
	vendors := []string{"Ana Cruz", "Bo Lee", "Ana Cruz;Bo Lee", "", "Office Staff"}
	titles := []string{"Departure Clean - (Standard)", "Deep Clean", "Touch Up", "Linen Drop", "Mystery Clean"}
	properties := []string{"Seaside - 12 Ocean Dr (U100)", "Inland - 4 Elm St (U200)", "Unknown (U999)", "No Code"}
	statuses := []string{"Finished", "Approved", "Open"}
	amounts := []string{"", "150.00", "95.50", "300", "42"}

	rows := make([]row, 0, n)
	for i := 0; i < n; i++ {
		r := row{
			model.ColAssignees:     faker.RandomString(vendors),
			model.ColCompletedDate: fmt.Sprintf("2024-03-%02d", faker.Number(2, 12)),
			model.ColProperty:      faker.RandomString(properties),
			model.ColTaskTitle:     faker.RandomString(titles),
			model.ColTotalCost:     faker.RandomString(amounts),
			model.ColRatePaid:      faker.RandomString(amounts),
			model.ColTaskID:        fmt.Sprint(faker.Number(1, 500)),
			model.ColStatus:        faker.RandomString(statuses),
		}
		if faker.Bool() {
			r[model.ColReservationID] = fmt.Sprintf("RES%d", faker.Number(1, n))
		}
		if faker.Number(0, 4) == 0 {
			r[model.ColTaskTags] = fmt.Sprintf("hld%d", faker.Number(1, n))
		}
		rows = append(rows, r)
	}
	return exportTable(rows...)
}

func TestAuditProperties(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		t.Run(fmt.Sprintf("seed %d", seed), func(t *testing.T) {
			refs := testRefs()
			res, err := Audit(randomExport(seed, 60), refs, testOptions())
			require.NoError(t, err)

			// amount due always comes from one of its sources
			for _, task := range res.Tasks {
				switch {
				case task.RatePaid.Valid:
					assert.True(t, task.AmountDue.Equal(task.RatePaid.Decimal))
				case task.TotalCost.Valid:
					assert.True(t, task.AmountDue.Equal(task.TotalCost.Decimal))
				default:
					assert.True(t, task.AmountDue.IsZero())
				}
			}

			// report size is the sum of the independent rule counts
			var total int
			for _, rr := range res.Rules {
				total += len(rr.Issues)
			}
			assert.Len(t, res.Issues, total)

			// duplicates are flagged exactly when an id is shared
			shared := make(map[string]int)
			for _, task := range res.Tasks {
				if task.EffectiveReservationID != "" {
					shared[task.EffectiveReservationID]++
				}
			}
			dupes := make(map[string]bool)
			for _, is := range res.Issues {
				if is.Label == model.LabelDuplicateReservation {
					assert.Greater(t, shared[is.Task.EffectiveReservationID], 1)
					dupes[is.Task.EffectiveReservationID] = true
				}
			}
			for id, n := range shared {
				assert.Equal(t, n > 1, dupes[id], id)
			}

			// a task is in the pricing output iff its price is not correct
			reconciler := NewReconciler(refs.Prices, refs.CleanTypes)
			pricing := res.Rules[len(res.Rules)-1]
			require.Equal(t, RulePricing, pricing.Name)
			var incorrect int
			for _, task := range res.Tasks {
				if reconciler.Evaluate(task).Kind != PriceCorrect {
					incorrect++
				}
			}
			assert.Len(t, pricing.Issues, incorrect)

			// sorted by task id
			for i := 1; i < len(res.Issues); i++ {
				assert.False(t, LessTaskID(res.Issues[i].Task.TaskID, res.Issues[i-1].Task.TaskID))
			}
		})
	}
}

func TestAuditIsDeterministic(t *testing.T) {
	render := func() []byte {
		res, err := Audit(randomExport(7, 80), testRefs(), testOptions())
		require.NoError(t, err)
		data, err := tabular.WriteCSV(IssuesTable(res.Issues))
		require.NoError(t, err)
		archive, err := VendorArchive(GroupByVendor(res.Tasks))
		require.NoError(t, err)
		return append(data, archive...)
	}

	assert.True(t, bytes.Equal(render(), render()))
}

func TestAuditEmptyWindow(t *testing.T) {
	opts := testOptions()
	opts.Window.Start = opts.Window.Start.AddDate(1, 0, 0)
	opts.Window.End = opts.Window.End.AddDate(1, 0, 0)

	res, err := Audit(randomExport(3, 20), testRefs(), opts)
	require.NoError(t, err)
	assert.Empty(t, res.Tasks)
	assert.Empty(t, res.Issues)
	assert.Len(t, res.Rules, 8)
}

func TestAuditMissingColumn(t *testing.T) {
	_, err := Audit(tabular.New([]string{model.ColTaskID}, nil), testRefs(), testOptions())
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestAuditMissingCostMarker(t *testing.T) {
	res, err := Audit(exportTable(
		validRow("1", "RES1"),
		validRow("2", "RES2").with(model.ColRatePaid, "N/A"),
		validRow("3", "RES3"),
	), testRefs(), testOptions())
	require.NoError(t, err)
	require.Len(t, res.Tasks, 3)

	var missing []string
	for _, is := range res.Issues {
		if is.Label == model.LabelMissingCost {
			missing = append(missing, is.Task.TaskID)
		}
	}
	assert.Equal(t, []string{"2"}, missing)
}

func TestAuditUnreadableCostIsNotFatal(t *testing.T) {
	res, err := Audit(exportTable(
		validRow("1", "RES1").with(model.ColRatePaid, "lots"),
		validRow("2", "RES2"),
	), testRefs(), testOptions())
	require.NoError(t, err)
	require.Len(t, res.Tasks, 2)

	counts := make(map[model.Label]int)
	for _, lc := range CountByLabel(res.Issues) {
		counts[lc.Label] = lc.Count
	}
	assert.Equal(t, 1, counts[model.LabelMissingCost])
}

func TestSummarize(t *testing.T) {
	tasks := normalized(t,
		validRow("1", "RES1"),
		validRow("2", "RES2").with(model.ColAssignees, "Bo Lee").with(model.ColRatePaid, "20.25"),
		validRow("3", "RES3").with(model.ColAssignees, "").with(model.ColProperty, "Inland (U200)"),
	)

	s := Summarize(tasks)
	assert.Equal(t, 3, s.Tasks)
	assert.Equal(t, 2, s.Properties)
	assert.Equal(t, 2, s.Vendors)
	assert.Equal(t, "320.25", s.AmountDue.StringFixed(2))
}

func TestGroupByVendor(t *testing.T) {
	tasks := normalized(t,
		validRow("1", "RES1").with(model.ColAssignees, "Bo Lee"),
		validRow("2", "RES2"),
		validRow("3", "RES3").with(model.ColAssignees, ""),
		validRow("4", "RES4").with(model.ColAssignees, "Bo Lee"),
	)

	groups := GroupByVendor(tasks)
	require.Len(t, groups, 2)
	assert.Equal(t, "Ana Cruz", groups[0].Name)
	assert.Equal(t, "Bo Lee", groups[1].Name)
	assert.Len(t, groups[1].Tasks, 2)
}

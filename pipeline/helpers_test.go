package pipeline

import (
	"time"

	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/model"
	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/pkg/tabular"
)

// row is one export line keyed by column name; omitted columns are blank.
type row map[string]string

func exportTable(rows ...row) *tabular.Table {
	values := make([][]string, 0, len(rows))
	for _, r := range rows {
		line := make([]string, len(RequiredColumns))
		for i, c := range RequiredColumns {
			line[i] = r[c]
		}
		values = append(values, line)
	}
	return tabular.New(RequiredColumns, values)
}

// validRow is a task that passes every check against testRefs.
func validRow(id, reservation string) row {
	return row{
		model.ColAssignees:     "Ana Cruz",
		model.ColGroup:         "Housekeeping",
		model.ColCompletedDate: "2024-03-05",
		model.ColProperty:      "Seaside - 12 Ocean Dr (U100)",
		model.ColTaskTitle:     "Departure Clean - (Standard)",
		model.ColRatePaid:      "150.00",
		model.ColTaskID:        id,
		model.ColStatus:        "Finished",
		model.ColReservationID: reservation,
	}
}

func (r row) with(col, value string) row {
	out := make(row, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	out[col] = value
	return out
}

var march = Window{
	Start: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
}

func testRefs() *References {
	cleans := model.NewCleanTypeList([]model.CleanType{
		{Name: "Departure Clean", Rate: "Departure"},
		{Name: "Deep Clean", Rate: "Deep"},
		{Name: "Touch Up", Rate: "Touch Up"},
		{Name: "Linen Drop", Rate: ""},
	})

	prices := model.NewPriceTable([]string{"Departure", "Deep"})
	prices.AddUnit("U100")
	prices.SetPrice("U100", "Departure", mustAmount("150.00"))
	prices.SetPrice("U100", "Deep", mustAmount("300"))
	prices.AddUnit("U200")
	prices.SetPrice("U200", "Departure", mustAmount("95.50"))

	return &References{
		Ignore:     []string{"Office Staff"},
		CleanTypes: cleans,
		Prices:     prices,
		Vendors: model.NewVendorMap([]model.VendorPair{
			{TaskSystem: "Ana Cruz", Billing: "Cruz Cleaning LLC"},
			{TaskSystem: "Bo Lee", Billing: "Lee Services"},
		}, "", ""),
	}
}

func testOptions() Options {
	return Options{
		Window:              march,
		ReservationKeywords: []string{"RES", "HLD"},
		ValidStatuses:       []string{"Finished", "Approved"},
		AssigneeDelimiter:   ";",
	}
}

func labels(issues []model.Issue) []model.Label {
	out := make([]model.Label, 0, len(issues))
	for _, is := range issues {
		out = append(out, is.Label)
	}
	return out
}

package pipeline

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/model"
	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/pkg/tabular"
	"github.com/shopspring/decimal"
)

var (
	ErrMissingColumn = errors.New("missing required column")
	ErrInvalidDate   = errors.New("invalid completed date")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidWindow = errors.New("invalid date window")
)

// RequiredColumns must all be present in a task export.
var RequiredColumns = []string{
	model.ColAssignees, model.ColGroup, model.ColCompletedDate, model.ColProperty,
	model.ColTaskTitle, model.ColTotalCost, model.ColRatePaid, model.ColTaskID,
	model.ColStatus, model.ColReservationID, model.ColTaskTags,
}

var (
	unitCodePattern    = regexp.MustCompile(`\((.*?)\)`)
	cleanSuffixPattern = regexp.MustCompile(`\s*-\s*\(.*?\)$`)
)

// dateLayouts are tried in order when parsing Completed date.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04 PM",
	"1/2/2006 3:04:05 PM",
	"1/2/06",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2, 2006 3:04 PM",
}

// Window is an inclusive range of calendar dates.
type Window struct {
	Start time.Time
	End   time.Time
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Contains compares calendar dates only.
func (w Window) Contains(t time.Time) bool {
	d := dateOf(t)
	return !d.Before(dateOf(w.Start)) && !d.After(dateOf(w.End))
}

// LastWeek is the Monday..Sunday week before the one containing today.
func LastWeek(today time.Time) Window {
	monday := dateOf(today).AddDate(0, 0, -daysSinceMonday(today)-7)
	return Window{Start: monday, End: monday.AddDate(0, 0, 6)}
}

// ParseWindow reads a YYYY-MM-DD start and end. Both blank selects
// LastWeek(today); one blank is an error.
func ParseWindow(start, end string, today time.Time) (Window, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" && end == "" {
		return LastWeek(today), nil
	}
	s, err := time.Parse("2006-01-02", start)
	if err != nil {
		return Window{}, fmt.Errorf("%w: start %q", ErrInvalidWindow, start)
	}
	e, err := time.Parse("2006-01-02", end)
	if err != nil {
		return Window{}, fmt.Errorf("%w: end %q", ErrInvalidWindow, end)
	}
	if s.After(e) {
		return Window{}, fmt.Errorf("%w: start %s is after end %s", ErrInvalidWindow, start, end)
	}
	return Window{Start: s, End: e}, nil
}

func daysSinceMonday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// NormalizeOptions are the per-run inputs of Normalize.
type NormalizeOptions struct {
	Ignore              []string
	Window              Window
	ReservationKeywords []string
}

// Normalize validates an export, derives the billing fields and keeps the
// tasks inside the window whose assignee is not ignored, ordered by
// completion date. Structural problems fail the whole batch.
func Normalize(export *tabular.Table, opts NormalizeOptions) ([]model.Task, error) {
	if missing := export.Missing(RequiredColumns...); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}

	ignore := make(map[string]bool, len(opts.Ignore))
	for _, v := range opts.Ignore {
		ignore[v] = true
	}

	tasks := make([]model.Task, 0, export.Len())
	for i := range export.Rows {
		task, dated, err := parseTask(export, i, opts.ReservationKeywords)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if task.Assignees != "" && ignore[task.Assignees] {
			continue
		}
		// Tasks without a completion date are never in a window.
		if !dated || !opts.Window.Contains(task.CompletedDate) {
			continue
		}
		tasks = append(tasks, task)
	}

	sort.SliceStable(tasks, func(a, b int) bool {
		return tasks[a].CompletedDate.Before(tasks[b].CompletedDate)
	})
	return tasks, nil
}

func parseTask(t *tabular.Table, r int, keywords []string) (model.Task, bool, error) {
	task := model.Task{
		Assignees:     t.Value(r, model.ColAssignees),
		Group:         t.Value(r, model.ColGroup),
		Property:      t.Value(r, model.ColProperty),
		Title:         t.Value(r, model.ColTaskTitle),
		TaskID:        t.Value(r, model.ColTaskID),
		Status:        t.Value(r, model.ColStatus),
		ReservationID: t.Value(r, model.ColReservationID),
		Tags:          t.Value(r, model.ColTaskTags),
	}

	var dated bool
	if raw := t.Value(r, model.ColCompletedDate); raw != "" {
		completed, err := ParseDate(raw)
		if err != nil {
			return task, false, err
		}
		task.CompletedDate = completed
		dated = true
	}

	// A bad cost cell is a problem with this task only; it reads as blank
	// and the Missing_Cost rule reports it.
	var err error
	if task.TotalCost, err = ParseAmount(t.Value(r, model.ColTotalCost)); err != nil {
		task.UnreadableCost = true
	}
	if task.RatePaid, err = ParseAmount(t.Value(r, model.ColRatePaid)); err != nil {
		task.UnreadableCost = true
	}

	task.AmountDue = AmountDue(task.RatePaid, task.TotalCost)
	task.EffectiveReservationID = EffectiveReservationID(task.Tags, task.ReservationID, keywords)
	task.UnitCode = UnitCode(task.Property)
	task.CleanType = CleanType(task.Title)
	return task, dated, nil
}

// ParseDate accepts the date formats seen in task exports.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// missingMarkers are cell values spreadsheet exports use for "no value".
var missingMarkers = map[string]bool{
	"n/a": true, "na": true, "#n/a": true, "#n/a n/a": true, "#na": true,
	"null": true, "nan": true, "-nan": true, "none": true, "<na>": true,
}

// ParseAmount reads a currency cell. Blank or a missing-value marker such
// as N/A means absent. Text that is not a non-negative amount is
// ErrInvalidAmount.
func ParseAmount(s string) (decimal.NullDecimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || missingMarkers[strings.ToLower(s)] {
		return decimal.NullDecimal{}, nil
	}
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return decimal.NullDecimal{}, fmt.Errorf("%w: negative %q", ErrInvalidAmount, s)
	}
	return decimal.NewNullDecimal(d), nil
}

// AmountDue prefers the rate paid, then the total cost, then zero.
func AmountDue(ratePaid, totalCost decimal.NullDecimal) decimal.Decimal {
	switch {
	case ratePaid.Valid:
		return ratePaid.Decimal
	case totalCost.Valid:
		return totalCost.Decimal
	default:
		return decimal.Zero
	}
}

// EffectiveReservationID returns the tags when they mention a reservation
// keyword (case-insensitive), otherwise the raw reservation id.
func EffectiveReservationID(tags, reservationID string, keywords []string) string {
	if tags != "" {
		upper := strings.ToUpper(tags)
		for _, kw := range keywords {
			if kw != "" && strings.Contains(upper, strings.ToUpper(kw)) {
				return tags
			}
		}
	}
	return reservationID
}

// UnitCode extracts the text of the first parenthetical in a property name.
func UnitCode(property string) string {
	m := unitCodePattern.FindStringSubmatch(property)
	if m == nil {
		return ""
	}
	return m[1]
}

// CleanType strips a trailing " - (...)" suffix from a task title.
func CleanType(title string) string {
	return cleanSuffixPattern.ReplaceAllString(title, "")
}

package pipeline

import (
	"sort"
	"strings"
	"time"

	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/model"
)

// BillPolicy decides which audited tasks go into the accounting feed.
type BillPolicy string

const (
	BillAll              BillPolicy = "all"
	BillExcludeFlagged   BillPolicy = "exclude_flagged"
	BillExcludeMispriced BillPolicy = "exclude_mispriced"
)

// InvoiceDates are the header dates shared by every line of one feed.
type InvoiceDates struct {
	BillDate   string
	DueDate    string
	BillNumber string
}

// InvoiceDatesFor uses the Monday of the week containing today as the bill
// date and bill number, and that week's Friday as the due date.
func InvoiceDatesFor(today time.Time) InvoiceDates {
	monday := dateOf(today).AddDate(0, 0, -daysSinceMonday(today))
	friday := monday.AddDate(0, 0, 4)
	return InvoiceDates{
		BillDate:   monday.Format("1/2/06"),
		DueDate:    friday.Format("1/2/06"),
		BillNumber: monday.Format("1.2.06"),
	}
}

// AccountingOptions configure the Transformer.
type AccountingOptions struct {
	GuestCategory    string
	OwnerCategory    string
	AddressDelimiter string
	Dates            InvoiceDates
}

// Transformer builds the vendor-billing feed.
type Transformer struct {
	registry *model.Registry
	vendors  *model.VendorMap
	opts     AccountingOptions
}

func NewTransformer(registry *model.Registry, vendors *model.VendorMap, opts AccountingOptions) *Transformer {
	return &Transformer{registry: registry, vendors: vendors, opts: opts}
}

// Transform emits one line per task, ordered by billing vendor name with
// unmapped vendors last. Tasks without a registry match are kept with NEED
// placeholders.
func (tr *Transformer) Transform(tasks []model.Task) []model.BillingLine {
	lines := make([]model.BillingLine, 0, len(tasks))
	for _, t := range tasks {
		lines = append(lines, tr.line(t))
	}
	sort.SliceStable(lines, func(a, b int) bool {
		va, vb := lines[a].Vendor, lines[b].Vendor
		if va == "" || vb == "" {
			return va != "" && vb == ""
		}
		return va < vb
	})
	return lines
}

func (tr *Transformer) line(t model.Task) model.BillingLine {
	l := model.BillingLine{
		BillDate:    tr.opts.Dates.BillDate,
		DueDate:     tr.opts.Dates.DueDate,
		BillNumber:  tr.opts.Dates.BillNumber,
		Vendor:      tr.vendors.Lookup(t.Assignees),
		Description: model.NeedValue,
		Category:    model.NeedValue,
		UnitPrice:   t.AmountDue.StringFixed(2),
		TaskID:      t.TaskID,
	}

	number := strings.ReplaceAll(t.EffectiveReservationID, " ", "")
	res, ok := tr.registry.Find(number)
	if !ok || number == "" {
		return l
	}

	l.Description = res.Number + ", " + Address(t.Property, tr.opts.AddressDelimiter)
	l.Class = res.UnitCode
	l.Category = tr.category(res.Type)
	return l
}

func (tr *Transformer) category(reservationType string) string {
	switch reservationType {
	case "":
		return model.NeedValue
	case model.ReservationRenter:
		return tr.opts.GuestCategory
	case model.ReservationOwner, model.ReservationGuestOfOwner:
		return tr.opts.OwnerCategory
	default:
		return ""
	}
}

// Address is the property text after the first delimiter, trimmed.
func Address(property, delimiter string) string {
	_, after, found := strings.Cut(property, delimiter)
	if !found {
		return ""
	}
	return strings.TrimSpace(after)
}

// Billable applies the policy to an audited batch. mispriced holds the task
// ids the price reconciler flagged.
func Billable(tasks []model.Task, issues []model.Issue, mispriced map[string]bool, policy BillPolicy) []model.Task {
	var skip map[string]bool
	switch policy {
	case BillExcludeFlagged:
		skip = make(map[string]bool, len(issues))
		for _, is := range issues {
			skip[is.Task.TaskID] = true
		}
	case BillExcludeMispriced:
		skip = mispriced
	default:
		return tasks
	}

	billable := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if !skip[t.TaskID] {
			billable = append(billable, t)
		}
	}
	return billable
}

package pipeline

import (
	"fmt"
	"strings"

	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/model"
	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/pkg/tabular"
)

// Reference table column names
const (
	ColIgnoreVendor      = "Vendor"
	ColClean             = "Clean"
	ColRate              = "Rate"
	ColUnitCode          = "Unit Code"
	ColVendorTaskSystem  = "Breezeway"
	ColVendorBilling     = "Quickbooks"
	ColRegistryUnitCode  = "Unit_Code"
	ColRegistryNumber    = "Reservation_Number"
	ColRegistryTypeDescr = "ReservationTypeDescription"
)

// References are the read-only lookup tables one run is checked against.
type References struct {
	Ignore     []string
	CleanTypes *model.CleanTypeList
	Prices     *model.PriceTable
	Vendors    *model.VendorMap
}

func requireColumns(name string, t *tabular.Table, cols ...string) error {
	if missing := t.Missing(cols...); len(missing) > 0 {
		return fmt.Errorf("%s table: %w: %s", name, ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// ParseIgnoreList returns the vendor names excluded from invoicing.
func ParseIgnoreList(t *tabular.Table) ([]string, error) {
	if err := requireColumns("ignore", t, ColIgnoreVendor); err != nil {
		return nil, err
	}
	var vendors []string
	for i := range t.Rows {
		if v := t.Value(i, ColIgnoreVendor); v != "" {
			vendors = append(vendors, v)
		}
	}
	return vendors, nil
}

// ParseCleanTypes reads the official cleans list.
func ParseCleanTypes(t *tabular.Table) (*model.CleanTypeList, error) {
	if err := requireColumns("cleans", t, ColClean, ColRate); err != nil {
		return nil, err
	}
	entries := make([]model.CleanType, 0, t.Len())
	for i := range t.Rows {
		entries = append(entries, model.CleanType{
			Name: t.Value(i, ColClean),
			Rate: t.Value(i, ColRate),
		})
	}
	return model.NewCleanTypeList(entries), nil
}

// ParsePriceTable reads the unit price table. Every column other than the
// unit code is a rate category. Cells that are not amounts are left empty
// and counted in skipped.
func ParsePriceTable(t *tabular.Table) (prices *model.PriceTable, skipped int, err error) {
	if err := requireColumns("prices", t, ColUnitCode); err != nil {
		return nil, 0, err
	}

	var categories []string
	for _, h := range t.Header {
		if h != ColUnitCode && h != "" {
			categories = append(categories, h)
		}
	}

	prices = model.NewPriceTable(categories)
	for i := range t.Rows {
		unit := t.Value(i, ColUnitCode)
		if unit == "" || !prices.AddUnit(unit) {
			continue
		}
		for _, c := range categories {
			cell := t.Value(i, c)
			if cell == "" {
				continue
			}
			amount, err := ParseAmount(cell)
			if err != nil {
				skipped++
				continue
			}
			prices.SetPrice(unit, c, amount.Decimal)
		}
	}
	return prices, skipped, nil
}

// ParseVendorMap reads the vendor name-mapping table, applying the
// misspelling fix to task-system names.
func ParseVendorMap(t *tabular.Table, fixFrom, fixTo string) (*model.VendorMap, error) {
	if err := requireColumns("cleaners", t, ColVendorTaskSystem, ColVendorBilling); err != nil {
		return nil, err
	}
	pairs := make([]model.VendorPair, 0, t.Len())
	for i := range t.Rows {
		pairs = append(pairs, model.VendorPair{
			TaskSystem: t.Value(i, ColVendorTaskSystem),
			Billing:    t.Value(i, ColVendorBilling),
		})
	}
	return model.NewVendorMap(pairs, fixFrom, fixTo), nil
}

// ParseRegistry reads the reservation system's housekeeping report.
func ParseRegistry(t *tabular.Table) (*model.Registry, error) {
	if err := requireColumns("registry", t, ColRegistryUnitCode, ColRegistryNumber, ColRegistryTypeDescr); err != nil {
		return nil, err
	}
	rows := make([]model.Reservation, 0, t.Len())
	for i := range t.Rows {
		rows = append(rows, model.Reservation{
			Number:   t.Value(i, ColRegistryNumber),
			UnitCode: t.Value(i, ColRegistryUnitCode),
			Type:     t.Value(i, ColRegistryTypeDescr),
		})
	}
	return model.NewRegistry(rows), nil
}

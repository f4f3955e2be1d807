package model

import "github.com/shopspring/decimal"

// CleanType is one entry of the official cleans list: the clean name as it
// appears in task titles and the price-table column it is billed under.
type CleanType struct {
	Name string `json:"clean"`
	Rate string `json:"rate"`
}

// CleanTypeList is the canonical set of recognized clean types.
type CleanTypeList struct {
	entries []CleanType
	rates   map[string]string
}

func NewCleanTypeList(entries []CleanType) *CleanTypeList {
	l := &CleanTypeList{rates: make(map[string]string, len(entries))}
	for _, e := range entries {
		if e.Name == "" {
			continue
		}
		if _, dup := l.rates[e.Name]; dup {
			continue
		}
		l.rates[e.Name] = e.Rate
		l.entries = append(l.entries, e)
	}
	return l
}

func (l *CleanTypeList) Contains(name string) bool {
	_, ok := l.rates[name]
	return ok
}

// RateFor returns the rate category for a clean type. ok is false when the
// clean is unknown or has no category.
func (l *CleanTypeList) RateFor(name string) (rate string, ok bool) {
	rate, ok = l.rates[name]
	return rate, ok && rate != ""
}

func (l *CleanTypeList) Entries() []CleanType {
	return append([]CleanType(nil), l.entries...)
}

// PriceTable holds the established price per unit code and rate category.
// A unit row may leave categories blank.
type PriceTable struct {
	categories map[string]bool
	prices     map[string]map[string]decimal.Decimal
}

func NewPriceTable(categories []string) *PriceTable {
	p := &PriceTable{
		categories: make(map[string]bool, len(categories)),
		prices:     make(map[string]map[string]decimal.Decimal),
	}
	for _, c := range categories {
		p.categories[c] = true
	}
	return p
}

// AddUnit registers a unit row. It returns false if the unit already has a
// row; the first row for a unit wins.
func (p *PriceTable) AddUnit(unit string) bool {
	if _, ok := p.prices[unit]; ok {
		return false
	}
	p.prices[unit] = make(map[string]decimal.Decimal)
	return true
}

// SetPrice fills one cell. The unit must have been added and the category
// must be a column.
func (p *PriceTable) SetPrice(unit, category string, price decimal.Decimal) {
	row, ok := p.prices[unit]
	if !ok || !p.categories[category] {
		return
	}
	row[category] = price
}

func (p *PriceTable) HasUnit(unit string) bool {
	_, ok := p.prices[unit]
	return ok
}

func (p *PriceTable) HasCategory(category string) bool {
	return p.categories[category]
}

// Price returns the established price, or ok=false when the row or cell is
// missing.
func (p *PriceTable) Price(unit, category string) (decimal.Decimal, bool) {
	price, ok := p.prices[unit][category]
	return price, ok
}

// VendorMap translates task-system vendor names to billing-system names.
type VendorMap struct {
	names map[string]string
}

// VendorPair is one row of the vendor name-mapping table.
type VendorPair struct {
	TaskSystem string
	Billing    string
}

// NewVendorMap builds the mapping, rewriting the misspelled task-system name
// from to its corrected spelling first. Later duplicates are ignored.
func NewVendorMap(pairs []VendorPair, from, to string) *VendorMap {
	m := &VendorMap{names: make(map[string]string, len(pairs))}
	for _, p := range pairs {
		name := p.TaskSystem
		if from != "" && name == from {
			name = to
		}
		if name == "" {
			continue
		}
		if _, dup := m.names[name]; dup {
			continue
		}
		m.names[name] = p.Billing
	}
	return m
}

// Lookup returns the billing name, or "" when the vendor is not mapped.
func (m *VendorMap) Lookup(taskSystemName string) string {
	return m.names[taskSystemName]
}

// Reservation types in the registry
const (
	ReservationRenter       = "Renter"
	ReservationOwner        = "Owner"
	ReservationGuestOfOwner = "Guest of Owner"
)

// Reservation is one row of the reservation registry.
type Reservation struct {
	Number   string `json:"reservation_number"`
	UnitCode string `json:"unit_code"`
	Type     string `json:"type"`
}

// Registry indexes reservations by number; the first row for a number wins.
type Registry struct {
	byNumber map[string]Reservation
}

func NewRegistry(rows []Reservation) *Registry {
	r := &Registry{byNumber: make(map[string]Reservation, len(rows))}
	for _, row := range rows {
		if row.Number == "" {
			continue
		}
		if _, dup := r.byNumber[row.Number]; dup {
			continue
		}
		r.byNumber[row.Number] = row
	}
	return r
}

func (r *Registry) Find(number string) (Reservation, bool) {
	res, ok := r.byNumber[number]
	return res, ok
}

func (r *Registry) Len() int {
	return len(r.byNumber)
}

package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/config"
	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/pkg/tabular"
)

var testKeys = config.SheetKeys{Ignore: "ignore", Cleans: "cleans", Prices: "prices", Cleaners: "cleaners"}

// referenceCSV is one consistent set of reference tables.
var referenceCSV = map[string]string{
	"ignore": "Vendor\nOffice Staff\n",
	"cleans": "Clean,Rate\nDeparture Clean,Departure\nDeep Clean,Deep\n",
	"prices": "Unit Code,Departure,Deep\nU100,150.00,300\nU200,95.50,oops\n",
	"cleaners": "Breezeway,Quickbooks\n" +
		"Ana Cruz,Cruz Cleaning LLC\n" +
		"Bo Leee,Lee Services\n",
}

const exportCSV = `Assignees,Group,Completed date,Property,Task title,Total cost,Rate paid,Task ID,Status,Reservation ID,Task tags
Ana Cruz,Housekeeping,2024-03-05,Seaside - 12 Ocean Dr (U100),Departure Clean - (Standard),,150.00,1,Finished,RES 1,
Bo Lee,Housekeeping,2024-03-06,Inland - 4 Elm St (U200),Departure Clean,,80,2,Finished,RES2,
Office Staff,Admin,2024-03-06,Seaside - 12 Ocean Dr (U100),Deep Clean,,300,3,Finished,RES3,
Ana Cruz,Housekeeping,2024-03-20,Seaside - 12 Ocean Dr (U100),Deep Clean,,300,4,Finished,RES4,
`

const registryCSV = `Unit_Code,Reservation_Number,ReservationTypeDescription
U100,RES1,Renter
U200,RES2,Owner
`

// memSource serves tables from memory and counts upstream fetches.
type memSource struct {
	tables map[string]string
	calls  atomic.Int32
	fail   error
}

func newMemSource() *memSource {
	return &memSource{tables: referenceCSV}
}

func (s *memSource) Fetch(ctx context.Context, key string) (*tabular.Table, error) {
	s.calls.Add(1)
	if s.fail != nil {
		return nil, s.fail
	}
	data, ok := s.tables[key]
	if !ok {
		return nil, fmt.Errorf("no table %s", key)
	}
	return tabular.ReadCSV([]byte(data))
}

// memArtifacts is an ArtifactStore kept in a map.
type memArtifacts struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMemArtifacts() *memArtifacts {
	return &memArtifacts{objects: make(map[string][]byte)}
}

func (m *memArtifacts) Put(ctx context.Context, name string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.objects[name] = data
	return nil
}

func (m *memArtifacts) PresignedURL(ctx context.Context, name string) (string, error) {
	return "https://minio.test/invoices/" + name + "?X-Amz-Signature=abc", nil
}

func (m *memArtifacts) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, name)
	return nil
}

func (m *memArtifacts) get(t *testing.T, name string) []byte {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[name]
	if !ok {
		t.Fatalf("Expected object %s to be stored", name)
	}
	return data
}

func testRules() config.RulesConfig {
	return config.RulesConfig{
		ReservationKeywords: []string{"RES", "HLD"},
		ValidStatuses:       []string{"Finished", "Approved"},
		AssigneeDelimiter:   ";",
	}
}

func testAccounting() config.AccountingConfig {
	return config.AccountingConfig{
		GuestCategory:    "Cleaning - Guest",
		OwnerCategory:    "Cleaning - Owner",
		AddressDelimiter: "-",
		BillPolicy:       config.BillAll,
		VendorFix:        config.VendorFix{Issue: "Bo Leee", Fix: "Bo Lee"},
	}
}

package model

// Sentinel written where the registry could not supply a value.
const NeedValue = "NEED"

// BillingColumns is the fixed column order of the accounting feed.
var BillingColumns = []string{
	"Invoice/Bill Date", "Due Date", "Invoice / Bill Number", "Transaction Type",
	"Customer", "Vendor", "Currency Code", "Product/Services", "Description",
	"Qty", "Discount %", "Unit Price", "Category", "Location", "Class", "Tax",
}

const (
	TransactionTypeBill = "Bill"
	BillQty             = "1.00"
)

// BillingLine is one row of the accounting feed. Columns the feed leaves
// blank (customer, currency, product, discount, location, tax) are not
// modelled.
type BillingLine struct {
	BillDate    string `json:"bill_date"`
	DueDate     string `json:"due_date"`
	BillNumber  string `json:"bill_number"`
	Vendor      string `json:"vendor"`
	Description string `json:"description"`
	UnitPrice   string `json:"unit_price"`
	Category    string `json:"category"`
	Class       string `json:"class"`
	TaskID      string `json:"task_id"`
}

// Row renders the line in BillingColumns order.
func (b BillingLine) Row() []string {
	return []string{
		b.BillDate, b.DueDate, b.BillNumber, TransactionTypeBill,
		"", b.Vendor, "", "", b.Description,
		BillQty, "", b.UnitPrice, b.Category, "", b.Class, "",
	}
}

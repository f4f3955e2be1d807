package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Run is one audit of an uploaded export for a date window.
type Run struct {
	ID          string            `json:"id"`
	Owner       string            `json:"owner"`
	Filename    string            `json:"filename"`
	Start       time.Time         `json:"start"`
	End         time.Time         `json:"end"`
	Status      string            `json:"status"` // processing, completed, failed
	ErrorMsg    string            `json:"error_msg,omitempty"`
	Summary     Summary           `json:"summary"`
	IssueCounts map[Label]int     `json:"issue_counts,omitempty"`
	Artifacts   map[string]string `json:"artifacts,omitempty"` // kind -> object name
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`

	// Kept for the accounting step and issue listing; not serialized.
	Tasks  []Task  `json:"-"`
	Issues []Issue `json:"-"`
	// Task ids of records the price reconciler flagged.
	Mispriced map[string]bool `json:"-"`
}

// Summary is the headline numbers of a run.
type Summary struct {
	Tasks      int             `json:"tasks"`
	Properties int             `json:"properties"`
	Vendors    int             `json:"vendors"`
	AmountDue  decimal.Decimal `json:"amount_due"`
	Issues     int             `json:"issues"`
}

// Run status constants
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Artifact kinds
const (
	ArtifactIssues     = "issues"
	ArtifactVendors    = "vendors"
	ArtifactAccounting = "accounting"
)

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/config"
	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/model"
	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/pipeline"
	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/pkg/logger"
	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/pkg/tabular"
	"github.com/google/uuid"
)

var (
	ErrRunNotCompleted   = errors.New("run has not completed")
	ErrArtifactNotFound  = errors.New("artifact not found")
	ErrUnknownArtifact   = errors.New("unknown artifact kind")
	ErrReferencesInvalid = errors.New("reference data unavailable")
)

const (
	contentTypeCSV = "text/csv"
	contentTypeZip = "application/zip"
)

// Runner executes audits and the accounting step, storing their files.
type Runner struct {
	store      *RunStore
	artifacts  ArtifactStore
	references *ReferenceService
	rules      config.RulesConfig
	accounting config.AccountingConfig
	now        func() time.Time
}

func NewRunner(store *RunStore, artifacts ArtifactStore, references *ReferenceService, rules config.RulesConfig, accounting config.AccountingConfig) *Runner {
	return &Runner{
		store:      store,
		artifacts:  artifacts,
		references: references,
		rules:      rules,
		accounting: accounting,
		now:        time.Now,
	}
}

// Audit checks one uploaded export. The run is stored even when it fails so
// the operator can see why.
func (r *Runner) Audit(ctx context.Context, owner, filename string, data []byte, window pipeline.Window) (*model.Run, error) {
	now := r.now()
	run := &model.Run{
		ID:        uuid.New().String(),
		Owner:     owner,
		Filename:  filename,
		Start:     window.Start,
		End:       window.End,
		Status:    model.StatusProcessing,
		Artifacts: make(map[string]string),
		CreatedAt: now,
	}
	r.store.Save(snapshot(run))

	ctx = logger.WithRunID(ctx, run.ID)
	logger.Info(ctx, "audit started",
		"filename", filename,
		"start", window.Start.Format("2006-01-02"),
		"end", window.End.Format("2006-01-02"),
	)

	err := r.audit(ctx, run, data, window)
	if err != nil {
		logger.Error(ctx, "audit failed", "error", err)
		r.store.Fail(run.ID, err)
	}
	stored, getErr := r.store.Get(run.ID)
	if getErr != nil {
		return nil, errors.Join(err, getErr)
	}
	return stored, err
}

func (r *Runner) audit(ctx context.Context, run *model.Run, data []byte, window pipeline.Window) error {
	export, err := tabular.Read(run.Filename, data)
	if err != nil {
		return fmt.Errorf("failed to read export: %w", err)
	}

	refs, err := r.references.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReferencesInvalid, err)
	}

	res, err := pipeline.Audit(export, refs, pipeline.Options{
		Window:              window,
		ReservationKeywords: r.rules.ReservationKeywords,
		ValidStatuses:       r.rules.ValidStatuses,
		AssigneeDelimiter:   r.rules.AssigneeDelimiter,
	})
	if err != nil {
		return err
	}

	issuesCSV, err := tabular.WriteCSV(pipeline.IssuesTable(res.Issues))
	if err != nil {
		return fmt.Errorf("failed to write issues report: %w", err)
	}
	vendorZip, err := pipeline.VendorArchive(pipeline.GroupByVendor(res.Tasks))
	if err != nil {
		return fmt.Errorf("failed to write vendor files: %w", err)
	}

	artifacts := map[string]string{
		model.ArtifactIssues:  ObjectName(run.Owner, run.ID, pipeline.FileName("Issues", window, ".csv")),
		model.ArtifactVendors: ObjectName(run.Owner, run.ID, pipeline.FileName("Cleaners", window, ".zip")),
	}
	if err := r.artifacts.Put(ctx, artifacts[model.ArtifactIssues], issuesCSV, contentTypeCSV); err != nil {
		return err
	}
	if err := r.artifacts.Put(ctx, artifacts[model.ArtifactVendors], vendorZip, contentTypeZip); err != nil {
		return err
	}

	summary := pipeline.Summarize(res.Tasks)
	summary.Issues = len(res.Issues)
	counts := make(map[model.Label]int)
	for _, lc := range pipeline.CountByLabel(res.Issues) {
		counts[lc.Label] = lc.Count
	}

	logger.Info(ctx, "audit completed",
		"tasks", summary.Tasks,
		"issues", summary.Issues,
		"amount_due", summary.AmountDue.StringFixed(2),
	)

	return r.store.Update(run.ID, func(run *model.Run) {
		run.Status = model.StatusCompleted
		run.Summary = summary
		run.IssueCounts = counts
		run.Tasks = res.Tasks
		run.Issues = res.Issues
		run.Mispriced = res.Mispriced()
		for kind, name := range artifacts {
			run.Artifacts[kind] = name
		}
	})
}

// Accounting builds the accounting feed of a completed run from an uploaded
// reservation registry.
func (r *Runner) Accounting(ctx context.Context, runID, filename string, data []byte) ([]model.BillingLine, error) {
	run, err := r.store.Get(runID)
	if err != nil {
		return nil, err
	}
	if run.Status != model.StatusCompleted {
		return nil, ErrRunNotCompleted
	}
	ctx = logger.WithRunID(ctx, run.ID)

	table, err := tabular.Read(filename, data)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}
	registry, err := pipeline.ParseRegistry(table)
	if err != nil {
		return nil, err
	}
	refs, err := r.references.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReferencesInvalid, err)
	}

	tasks := pipeline.Billable(run.Tasks, run.Issues, run.Mispriced, pipeline.BillPolicy(r.accounting.BillPolicy))
	lines := pipeline.NewTransformer(registry, refs.Vendors, pipeline.AccountingOptions{
		GuestCategory:    r.accounting.GuestCategory,
		OwnerCategory:    r.accounting.OwnerCategory,
		AddressDelimiter: r.accounting.AddressDelimiter,
		Dates:            pipeline.InvoiceDatesFor(r.now()),
	}).Transform(tasks)

	feed, err := tabular.WriteCSV(pipeline.AccountingTable(lines))
	if err != nil {
		return nil, fmt.Errorf("failed to write accounting feed: %w", err)
	}

	window := pipeline.Window{Start: run.Start, End: run.End}
	name := ObjectName(run.Owner, run.ID, pipeline.FileName("Accounting", window, ".csv"))
	if err := r.artifacts.Put(ctx, name, feed, contentTypeCSV); err != nil {
		return nil, err
	}

	logger.Info(ctx, "accounting feed created",
		"lines", len(lines),
		"registry_reservations", registry.Len(),
		"policy", r.accounting.BillPolicy,
	)

	err = r.store.Update(run.ID, func(run *model.Run) {
		run.Artifacts[model.ArtifactAccounting] = name
	})
	return lines, err
}

// ArtifactURL returns a download link for one of a run's files.
func (r *Runner) ArtifactURL(ctx context.Context, run *model.Run, kind string) (string, error) {
	switch kind {
	case model.ArtifactIssues, model.ArtifactVendors, model.ArtifactAccounting:
	default:
		return "", ErrUnknownArtifact
	}
	name, ok := run.Artifacts[kind]
	if !ok {
		return "", ErrArtifactNotFound
	}
	return r.artifacts.PresignedURL(ctx, name)
}

// Delete removes a run and its stored files. Missing files are logged and
// skipped.
func (r *Runner) Delete(ctx context.Context, runID string) error {
	run, err := r.store.Get(runID)
	if err != nil {
		return err
	}
	ctx = logger.WithRunID(ctx, run.ID)
	for _, name := range run.Artifacts {
		if err := r.artifacts.Delete(ctx, name); err != nil {
			logger.Warn(ctx, "failed to delete artifact", "object", name, "error", err)
		}
	}
	r.store.Delete(run.ID)
	return nil
}

package pipeline

import (
	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/model"
	"github.com/shopspring/decimal"
)

// OutcomeKind classifies a task's price check.
type OutcomeKind int

const (
	PriceCorrect OutcomeKind = iota
	PriceNotEstablished
	PriceInvalidClean
	PriceNotFound
	PriceMismatch
)

// PriceOutcome is the result of checking one task. Expected is set only for
// PriceMismatch.
type PriceOutcome struct {
	Kind     OutcomeKind
	Expected decimal.Decimal
}

// Label is the issue label for an incorrect outcome; "" for PriceCorrect.
func (o PriceOutcome) Label() model.Label {
	switch o.Kind {
	case PriceNotEstablished:
		return model.LabelPriceNotEstablished
	case PriceInvalidClean:
		return model.LabelInvalidClean
	case PriceNotFound:
		return model.LabelPriceNotFound
	case PriceMismatch:
		return model.PriceSetAt(o.Expected)
	default:
		return ""
	}
}

// Reconciler checks billed amounts against the established price table.
type Reconciler struct {
	prices     *model.PriceTable
	cleanTypes *model.CleanTypeList
}

func NewReconciler(prices *model.PriceTable, cleanTypes *model.CleanTypeList) *Reconciler {
	return &Reconciler{prices: prices, cleanTypes: cleanTypes}
}

// Evaluate prices one task. A missing unit row takes precedence over a
// missing rate category, which takes precedence over an empty cell.
func (r *Reconciler) Evaluate(t model.Task) PriceOutcome {
	category, mapped := r.cleanTypes.RateFor(t.CleanType)
	priced := mapped && r.prices.HasCategory(category)

	if priced {
		if official, ok := r.prices.Price(t.UnitCode, category); ok {
			if t.AmountDue.Equal(official) {
				return PriceOutcome{Kind: PriceCorrect}
			}
			return PriceOutcome{Kind: PriceMismatch, Expected: official}
		}
	}

	switch {
	case !r.prices.HasUnit(t.UnitCode):
		return PriceOutcome{Kind: PriceNotEstablished}
	case !priced:
		return PriceOutcome{Kind: PriceInvalidClean}
	default:
		return PriceOutcome{Kind: PriceNotFound}
	}
}

// Reconcile returns the mispriced tasks, each tagged with its outcome.
func (r *Reconciler) Reconcile(tasks []model.Task) RuleResult {
	res := RuleResult{Name: RulePricing}
	for _, t := range tasks {
		outcome := r.Evaluate(t)
		if outcome.Kind == PriceCorrect {
			continue
		}
		res.Issues = append(res.Issues, model.Issue{Label: outcome.Label(), Task: t})
	}
	return res
}

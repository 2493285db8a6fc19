package payout

import (
	"errors"

	"github.com/mmynk/showpayouts/internal/calculator"
	"github.com/mmynk/showpayouts/internal/models"
	"github.com/mmynk/showpayouts/internal/rules"
)

// Preview estimates what each of performerCount performers would receive.
// Nothing is read or written; it backs live estimates before a cast is set.
func Preview(r *rules.Rules, financials *models.ShowFinancials, performerCount int) (calculator.PreviewResult, error) {
	if r == nil {
		return calculator.PreviewResult{}, fail(ReasonNoRules, nil)
	}
	snap := calculator.ResolveSnapshot(&models.Show{Financials: financials})
	if !snap.Complete {
		return calculator.PreviewResult{}, fail(ReasonNoFinancialData, nil)
	}

	res, err := calculator.Preview(snap, r, performerCount)
	if errors.Is(err, calculator.ErrNoPerformers) {
		return calculator.PreviewResult{}, fail(ReasonNoPerformers, err)
	}
	if err != nil {
		return calculator.PreviewResult{}, fail(ReasonInvalidRules, err)
	}
	return res, nil
}

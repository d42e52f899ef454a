// Package normalize repairs missing transaction prices over a
// caller-defined scope (one filing, one sheet, or a combined table).
//
// A price is missing when it is nil or exactly zero. Three fallback
// tiers run in order, each only touching records still missing after
// the previous one:
//
//  1. acquisition-coded ("A") records take the same-day mean of
//     positive prices in the scope,
//  2. remaining gaps forward-fill from the last positive price in
//     record order,
//  3. whatever is left takes the scope-wide mean of positive prices.
//
// Each tier is a pure pass returning a fresh batch, so the tiers are
// independently testable and the input is never mutated. When the
// scope holds no positive price at all, every missing price ends up
// nil, reported zeros included, and the caller receives an
// IncompleteWarning instead of an error.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"insider_screener/pkg/core/form4"
)

// IncompleteWarning reports records that no tier could price. It is a
// data-quality signal, not a failure: the scope simply contains no
// positive anchor price to derive from.
type IncompleteWarning struct {
	Scope    string `json:"scope"`
	Unfilled int    `json:"unfilled"`
}

func (w *IncompleteWarning) Message() string {
	return fmt.Sprintf("scope %q: %d records remain unpriced (no positive anchor price in scope)", w.Scope, w.Unfilled)
}

// Repair fills missing prices across the batch and returns a new
// batch; the input is left untouched. Calling Repair on an already
// fully-priced batch is a no-op, so the operation is idempotent.
func Repair(scope string, records []form4.TransactionRecord) ([]form4.TransactionRecord, *IncompleteWarning) {
	out := fillSameDayAverage(records)
	out = forwardFill(out)
	out, unfilled := fillScopeAverage(out)
	if unfilled > 0 {
		return out, &IncompleteWarning{Scope: scope, Unfilled: unfilled}
	}
	return out, nil
}

func missing(r form4.TransactionRecord) bool {
	return r.PricePerShare == nil || *r.PricePerShare == 0
}

// fillSameDayAverage assigns acquisition-coded records the mean of
// positive same-day prices. Records whose date has no positive-priced
// peer stay missing for later tiers.
func fillSameDayAverage(records []form4.TransactionRecord) []form4.TransactionRecord {
	positive := lo.Filter(records, func(r form4.TransactionRecord, _ int) bool {
		return r.HasPositivePrice() && r.TransactionDate != nil
	})
	byDay := lo.GroupBy(positive, func(r form4.TransactionRecord) time.Time {
		return *r.TransactionDate
	})

	out := make([]form4.TransactionRecord, len(records))
	copy(out, records)
	for i, r := range out {
		if !missing(r) || !strings.EqualFold(r.TransactionCode, "A") || r.TransactionDate == nil {
			continue
		}
		peers, ok := byDay[*r.TransactionDate]
		if !ok {
			continue
		}
		mean := meanPrice(peers)
		out[i].PricePerShare = &mean
	}
	return out
}

// forwardFill carries the most recent positive price forward in record
// order. Record order is whatever the caller batched, which is not
// necessarily chronological; that order dependence is deliberate and
// matches the semantics downstream consumers were built against.
func forwardFill(records []form4.TransactionRecord) []form4.TransactionRecord {
	out := make([]form4.TransactionRecord, len(records))
	copy(out, records)

	var last float64
	seen := false
	for i, r := range out {
		if r.HasPositivePrice() {
			last = *r.PricePerShare
			seen = true
			continue
		}
		if seen {
			v := last
			out[i].PricePerShare = &v
		}
	}
	return out
}

// fillScopeAverage is the backstop: every record still missing takes
// the scope-wide mean of positive prices. Returns the count that could
// not be filled because the scope has no positive price anywhere; in
// that case reported zeros are nulled out too, so an unfillable record
// always reads as "no price known" rather than a spurious $0.00.
func fillScopeAverage(records []form4.TransactionRecord) ([]form4.TransactionRecord, int) {
	out := make([]form4.TransactionRecord, len(records))
	copy(out, records)

	positive := lo.Filter(out, func(r form4.TransactionRecord, _ int) bool {
		return r.HasPositivePrice()
	})
	if len(positive) == 0 {
		unfilled := 0
		for i, r := range out {
			if missing(r) {
				out[i].PricePerShare = nil
				unfilled++
			}
		}
		return out, unfilled
	}

	mean := meanPrice(positive)
	for i, r := range out {
		if missing(r) {
			v := mean
			out[i].PricePerShare = &v
		}
	}
	return out, 0
}

func meanPrice(records []form4.TransactionRecord) float64 {
	sum := lo.SumBy(records, func(r form4.TransactionRecord) float64 {
		return *r.PricePerShare
	})
	return sum / float64(len(records))
}

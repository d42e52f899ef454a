// Package pipeline composes the screening flow: filter the company's
// filing index, fetch and extract every surviving filing on a bounded
// worker pool, then optionally repair prices over the combined batch.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"insider_screener/pkg/core/edgar"
	"insider_screener/pkg/core/form4"
	"insider_screener/pkg/core/normalize"
)

// DocumentFetcher resolves a filing reference to its raw document
// text. Implementations may hit live EDGAR, a local cache, or a test
// double; the orchestrator treats any failure as a per-filing event.
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, ref edgar.FilingReference) (string, error)
}

// Failure kinds, matching the error taxonomy.
const (
	FailureTransport   = "transport"
	FailureContentType = "content_type"
	FailureXMLParse    = "xml_parse"
	FailureCanceled    = "canceled"
)

// Failure records one filing that could not be turned into records.
type Failure struct {
	FilingID string `json:"filing_id"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
}

// Options controls one screening run.
type Options struct {
	FormTypes    []string
	Start, End   time.Time
	Workers      int    // fetch+extract concurrency, default 4
	RepairPrices bool   // run the price normalizer over the combined batch
	Scope        string // normalization scope label, default "combined"
}

// Result is the outcome of a run. All three slices are always non-nil
// so an empty or partial run can never serialize a field away.
type Result struct {
	RunID    string                        `json:"run_id"`
	Records  []form4.TransactionRecord     `json:"records"`
	Failures []Failure                     `json:"failures"`
	Warnings []normalize.IncompleteWarning `json:"warnings"`
}

// Orchestrator wires the filter, fetcher and extractor together.
type Orchestrator struct {
	fetcher DocumentFetcher
}

func New(fetcher DocumentFetcher) *Orchestrator {
	return &Orchestrator{fetcher: fetcher}
}

// Run executes the pipeline over the given filing index. Per-filing
// fetch or extraction failures are collected and never abort the
// batch; only a malformed index is fatal. Cancelling ctx aborts
// outstanding fetches and returns whatever has accumulated, with the
// skipped filings reported as canceled.
func (o *Orchestrator) Run(ctx context.Context, recent edgar.RecentFilings, opts Options) (*Result, error) {
	refs, err := edgar.FilterFilings(recent, opts.FormTypes, opts.Start, opts.End)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log.Info().
		Str("run_id", runID).
		Int("filings", len(refs)).
		Strs("form_types", opts.FormTypes).
		Msg("starting screening run")

	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}

	// One slot per filing keeps output in filing order no matter how
	// the pool schedules the work.
	type slot struct {
		records []form4.TransactionRecord
		failure *Failure
	}
	slots := make([]slot, len(refs))

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := range refs {
		wg.Add(1)
		go func(i int, ref edgar.FilingReference) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				slots[i].failure = &Failure{FilingID: ref.AccessionNumber, Kind: FailureCanceled, Message: ctx.Err().Error()}
				return
			}

			doc, err := o.fetcher.FetchDocument(ctx, ref)
			if err != nil {
				slots[i].failure = classifyFetchFailure(ref, err)
				return
			}

			records, err := form4.Extract(doc)
			if err != nil {
				slots[i].failure = classifyExtractFailure(ref, err)
				return
			}
			for j := range records {
				records[j].Source = ref.AccessionNumber
			}
			slots[i].records = records
		}(i, refs[i])
	}
	// Barrier: the normalizer needs the whole scope, so nothing below
	// runs until every fetch+extract worker has finished.
	wg.Wait()

	result := &Result{
		RunID:    runID,
		Records:  []form4.TransactionRecord{},
		Failures: []Failure{},
		Warnings: []normalize.IncompleteWarning{},
	}
	for _, s := range slots {
		if s.failure != nil {
			log.Warn().
				Str("run_id", runID).
				Str("filing", s.failure.FilingID).
				Str("kind", s.failure.Kind).
				Msg(s.failure.Message)
			result.Failures = append(result.Failures, *s.failure)
			continue
		}
		result.Records = append(result.Records, s.records...)
	}

	if opts.RepairPrices {
		scope := opts.Scope
		if scope == "" {
			scope = "combined"
		}
		repaired, warn := normalize.Repair(scope, result.Records)
		result.Records = repaired
		if warn != nil {
			log.Warn().
				Str("run_id", runID).
				Str("scope", warn.Scope).
				Int("unfilled", warn.Unfilled).
				Msg("price normalization incomplete")
			result.Warnings = append(result.Warnings, *warn)
		}
	}

	log.Info().
		Str("run_id", runID).
		Int("records", len(result.Records)).
		Int("failures", len(result.Failures)).
		Msg("screening run finished")
	return result, nil
}

func classifyFetchFailure(ref edgar.FilingReference, err error) *Failure {
	kind := FailureTransport
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		kind = FailureCanceled
	}
	return &Failure{FilingID: ref.AccessionNumber, Kind: kind, Message: err.Error()}
}

func classifyExtractFailure(ref edgar.FilingReference, err error) *Failure {
	kind := FailureXMLParse
	var wrongType *form4.WrongContentTypeError
	if errors.As(err, &wrongType) {
		kind = FailureContentType
	}
	return &Failure{FilingID: ref.AccessionNumber, Kind: kind, Message: err.Error()}
}

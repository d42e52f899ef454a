package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"insider_screener/pkg/core/form4"
	"insider_screener/pkg/core/pipeline"
)

// ScreeningRun is one persisted pipeline run: the normalized records
// plus the failure list, so a stored run can never look cleaner than
// it was.
type ScreeningRun struct {
	ID          string
	Company     string
	CIK         string
	WindowStart time.Time
	WindowEnd   time.Time
	Records     []form4.TransactionRecord
	Failures    []pipeline.Failure
}

// RunRepo persists screening runs.
//
// Schema (managed by migrations elsewhere):
//
//	CREATE TABLE screening_runs (
//	  id UUID PRIMARY KEY,
//	  company TEXT, cik TEXT,
//	  window_start DATE, window_end DATE,
//	  record_count INT, failure_count INT,
//	  created_at TIMESTAMPTZ
//	);
//	CREATE TABLE insider_transactions (
//	  run_id UUID REFERENCES screening_runs(id),
//	  officer_name TEXT, officer_title TEXT,
//	  transaction_code TEXT, transaction_date DATE,
//	  shares DOUBLE PRECISION, price_per_share DOUBLE PRECISION,
//	  security_title TEXT, source TEXT
//	);
type RunRepo struct{}

func NewRunRepo() *RunRepo {
	return &RunRepo{}
}

// Save inserts the run header and batch-inserts its records.
func (r *RunRepo) Save(ctx context.Context, run *ScreeningRun) error {
	pool := GetPool()
	if pool == nil {
		return fmt.Errorf("database pool not initialized")
	}

	_, err := pool.Exec(ctx, `
		INSERT INTO screening_runs (id, company, cik, window_start, window_end, record_count, failure_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.Company, run.CIK, run.WindowStart, run.WindowEnd,
		len(run.Records), len(run.Failures), time.Now())
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	batch := &pgx.Batch{}
	for _, rec := range run.Records {
		batch.Queue(`
			INSERT INTO insider_transactions
			  (run_id, officer_name, officer_title, transaction_code, transaction_date, shares, price_per_share, security_title, source)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			run.ID, rec.OfficerName, rec.OfficerTitle, rec.TransactionCode,
			rec.TransactionDate, rec.Shares, rec.PricePerShare, rec.SecurityTitle, rec.Source)
	}

	results := pool.SendBatch(ctx, batch)
	defer results.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert transaction %d of run %s: %w", i, run.ID, err)
		}
	}
	return nil
}

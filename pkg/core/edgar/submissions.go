package edgar

import (
	"fmt"
	"strings"
	"time"
)

const filingDateLayout = "2006-01-02"

// Submissions is the top-level company submissions response from
// https://data.sec.gov/submissions/CIK##########.json.
type Submissions struct {
	CIK     string   `json:"cik"`
	Name    string   `json:"name"`
	Tickers []string `json:"tickers"`
	Filings Filings  `json:"filings"`
}

// Filings contains the recent filing index.
type Filings struct {
	Recent RecentFilings `json:"recent"`
}

// RecentFilings holds the filing index as parallel arrays: element i
// across each array describes one filing.
type RecentFilings struct {
	AccessionNumber []string `json:"accessionNumber"` // "0001197649-25-000046"
	FilingDate      []string `json:"filingDate"`      // "2025-10-10"
	Form            []string `json:"form"`            // "4", "4/A", "10-K", ...
	PrimaryDocument []string `json:"primaryDocument"` // may carry a folder prefix
}

// FilingReference identifies a single filing selected from the index.
type FilingReference struct {
	FormType        string    `json:"form_type"`
	FilingDate      time.Time `json:"filing_date"`
	AccessionNumber string    `json:"accession_number"`
	PrimaryDocument string    `json:"primary_document"`
}

// MalformedIndexError reports a structurally unusable filing index.
// The filter fails the whole call rather than returning partial
// results: a corrupt index means the caller passed bad input, not a
// per-filing data-quality issue.
type MalformedIndexError struct {
	Index  int    // position in the parallel arrays, -1 for shape errors
	Value  string // offending value, if any
	Reason string
}

func (e *MalformedIndexError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("malformed filing index: %s", e.Reason)
	}
	return fmt.Sprintf("malformed filing index at entry %d (%q): %s", e.Index, e.Value, e.Reason)
}

// FilterFilings returns the filings whose form type is in formTypes and
// whose filing date falls inside [start, end], both ends inclusive.
// Input order is preserved and duplicates are retained; deduplicating
// here would hide upstream corruption rather than fix it.
func FilterFilings(recent RecentFilings, formTypes []string, start, end time.Time) ([]FilingReference, error) {
	n := len(recent.AccessionNumber)
	if len(recent.FilingDate) != n || len(recent.Form) != n || len(recent.PrimaryDocument) != n {
		return nil, &MalformedIndexError{Index: -1, Reason: "parallel arrays have unequal lengths"}
	}

	wanted := make(map[string]bool, len(formTypes))
	for _, ft := range formTypes {
		wanted[ft] = true
	}

	var refs []FilingReference
	for i := 0; i < n; i++ {
		filed, err := time.Parse(filingDateLayout, recent.FilingDate[i])
		if err != nil {
			return nil, &MalformedIndexError{Index: i, Value: recent.FilingDate[i], Reason: "unparsable filing date"}
		}
		if !wanted[recent.Form[i]] {
			continue
		}
		if filed.Before(start) || filed.After(end) {
			continue
		}
		refs = append(refs, FilingReference{
			FormType:        recent.Form[i],
			FilingDate:      filed,
			AccessionNumber: recent.AccessionNumber[i],
			PrimaryDocument: recent.PrimaryDocument[i],
		})
	}
	return refs, nil
}

// PadCIK zero-pads a CIK to the ten digits the submissions API expects.
func PadCIK(cik string) string {
	return fmt.Sprintf("%010s", strings.TrimLeft(cik, "0"))
}

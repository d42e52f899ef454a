package form4

import (
	"errors"
	"testing"
	"time"
)

const plainDoc = `<?xml version="1.0"?>
<ownershipDocument>
  <reportingOwner>
    <reportingOwnerId>
      <rptOwnerName>HUANG JEN HSUN</rptOwnerName>
    </reportingOwnerId>
    <reportingOwnerRelationship>
      <isOfficer>1</isOfficer>
      <officerTitle>President and CEO</officerTitle>
    </reportingOwnerRelationship>
  </reportingOwner>
  <nonDerivativeTable>
    <nonDerivativeTransaction>
      <securityTitle><value>Common Stock</value></securityTitle>
      <transactionDate><value>2025-07-18</value></transactionDate>
      <transactionCoding><transactionCode><value>S</value></transactionCode></transactionCoding>
      <transactionAmounts>
        <transactionShares><value>120,000</value></transactionShares>
        <transactionPricePerShare><value>172.35</value></transactionPricePerShare>
      </transactionAmounts>
    </nonDerivativeTransaction>
  </nonDerivativeTable>
</ownershipDocument>`

const namespacedDoc = `<?xml version="1.0"?>
<ownershipDocument xmlns="http://www.sec.gov/edgar/ownership">
  <reportingOwner>
    <reportingOwnerId>
      <rptOwnerName>SMITH JANE</rptOwnerName>
    </reportingOwnerId>
    <reportingOwnerRelationship>
      <officerTitle>CFO</officerTitle>
    </reportingOwnerRelationship>
  </reportingOwner>
  <reportingOwner>
    <reportingOwnerId>
      <ownerName>DOE TRUST</ownerName>
    </reportingOwnerId>
  </reportingOwner>
  <nonDerivativeTable>
    <nonDerivativeTransaction>
      <securityTitle><value>Common Stock</value></securityTitle>
      <transactionDate><value>2025-07-01T00:00:00-04:00</value></transactionDate>
      <transactionCoding><transactionCode><value>A</value></transactionCode></transactionCoding>
      <transactionAmounts>
        <transactionShares><value>500</value></transactionShares>
        <transactionPricePerShare><value>100.00</value></transactionPricePerShare>
      </transactionAmounts>
    </nonDerivativeTransaction>
    <nonDerivativeTransaction>
      <transactionDate><value>2025-07-02</value></transactionDate>
      <transactionCoding><transactionCode><value>S</value></transactionCode></transactionCoding>
      <transactionAmounts>
        <transactionShares><value>250</value></transactionShares>
      </transactionAmounts>
    </nonDerivativeTransaction>
  </nonDerivativeTable>
</ownershipDocument>`

func TestExtract_Namespaced(t *testing.T) {
	records, err := Extract(namespacedDoc)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	// 2 owners x 2 transactions, transaction-major.
	if len(records) != 4 {
		t.Fatalf("Expected 4 records, got %d", len(records))
	}

	first := records[0]
	if first.OfficerName != "SMITH JANE" || first.OfficerTitle != "CFO" {
		t.Errorf("Unexpected first owner: %q / %q", first.OfficerName, first.OfficerTitle)
	}
	if first.TransactionCode != "A" {
		t.Errorf("Expected code A, got %q", first.TransactionCode)
	}
	if first.TransactionDate == nil || !first.TransactionDate.Equal(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Time suffix should be truncated to the date, got %v", first.TransactionDate)
	}
	if first.PricePerShare == nil || *first.PricePerShare != 100.00 {
		t.Errorf("Unexpected price: %v", first.PricePerShare)
	}

	// Second owner of the first transaction uses the ownerName fallback.
	second := records[1]
	if second.OfficerName != "DOE TRUST" {
		t.Errorf("Expected ownerName fallback, got %q", second.OfficerName)
	}
	if second.OfficerTitle != "" {
		t.Errorf("Owner without relationship should have empty title, got %q", second.OfficerTitle)
	}
	if second.TransactionCode != first.TransactionCode {
		t.Errorf("Cross-join should repeat transaction fields per owner")
	}

	// Second transaction has no price and no security title.
	third := records[2]
	if third.PricePerShare != nil {
		t.Errorf("Missing price should stay nil, got %v", third.PricePerShare)
	}
	if third.SecurityTitle != nil {
		t.Errorf("Missing security title should stay nil, got %v", third.SecurityTitle)
	}
	if third.Shares == nil || *third.Shares != 250 {
		t.Errorf("Unexpected shares: %v", third.Shares)
	}
}

func TestExtract_NoNamespace(t *testing.T) {
	records, err := Extract(plainDoc)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.OfficerName != "HUANG JEN HSUN" {
		t.Errorf("Unexpected owner: %q", r.OfficerName)
	}
	if r.Shares == nil || *r.Shares != 120000 {
		t.Errorf("Comma-grouped shares should parse, got %v", r.Shares)
	}
}

func TestExtract_HTMLIsWrongContentType(t *testing.T) {
	inputs := []string{
		"<!DOCTYPE html><html><body>viewer page</body></html>",
		"<HTML><head></head></HTML>",
		// Malformed HTML must still classify as wrong content type,
		// never as an XML parse error.
		"<html><div>broken",
	}
	for _, in := range inputs {
		_, err := Extract(in)
		var wrongType *WrongContentTypeError
		if !errors.As(err, &wrongType) {
			t.Errorf("Expected WrongContentTypeError for %q, got %v", in, err)
		}
		var parseErr *ParseError
		if errors.As(err, &parseErr) {
			t.Errorf("HTML input must not yield ParseError, got %v", err)
		}
	}
}

func TestExtract_MalformedXML(t *testing.T) {
	_, err := Extract("<?xml version=\"1.0\"?>\n<ownershipDocument>\n<reportingOwner></broken>")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Expected ParseError, got %v", err)
	}
	if parseErr.Line <= 0 {
		t.Errorf("ParseError should carry the offending line, got %d", parseErr.Line)
	}
}

func TestExtract_NoOwnersOrTransactions(t *testing.T) {
	records, err := Extract(`<?xml version="1.0"?><ownershipDocument><issuer/></ownershipDocument>`)
	if err != nil {
		t.Fatalf("Empty document should not error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected 0 records, got %d", len(records))
	}
}

func TestExtract_Deterministic(t *testing.T) {
	first, err := Extract(namespacedDoc)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	second, err := Extract(namespacedDoc)
	if err != nil {
		t.Fatalf("Extract failed on second call: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("Record counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].OfficerName != second[i].OfficerName ||
			first[i].TransactionCode != second[i].TransactionCode {
			t.Errorf("Record %d differs between identical extractions", i)
		}
	}
}

func TestExtract_MissingOwnerName(t *testing.T) {
	doc := `<?xml version="1.0"?>
<ownershipDocument>
  <reportingOwner><reportingOwnerId></reportingOwnerId></reportingOwner>
  <nonDerivativeTable>
    <nonDerivativeTransaction>
      <transactionDate><value>2025-07-02</value></transactionDate>
      <transactionCoding><transactionCode><value>P</value></transactionCode></transactionCoding>
    </nonDerivativeTransaction>
  </nonDerivativeTable>
</ownershipDocument>`
	records, err := Extract(doc)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if records[0].OfficerName != "Unknown" {
		t.Errorf("Nameless owner should fall back to Unknown, got %q", records[0].OfficerName)
	}
}

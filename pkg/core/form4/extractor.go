// Package form4 extracts insider-transaction records from SEC Form 4
// ownership documents.
//
// SEC's ownership schema evolved over the years and filing agents
// implement it inconsistently: documents arrive with a default
// namespace, a prefixed namespace, or none at all, and individual
// elements come and go. The extractor infers the namespace once from
// the document root and degrades per-field, never per-document, on
// missing elements.
package form4

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"
)

const dateLayout = "2006-01-02"

// Extract parses one Form 4 document into a denormalized record list:
// one record per reporting owner per non-derivative transaction. A
// filing with no owners or no non-derivative transactions yields an
// empty list and no error. Extraction is a pure function of the
// document text.
func Extract(documentText string) ([]TransactionRecord, error) {
	if strings.Contains(strings.ToLower(documentText), "<html") {
		return nil, &WrongContentTypeError{}
	}

	doc, err := xmlquery.Parse(strings.NewReader(strings.TrimSpace(documentText)))
	if err != nil {
		perr := &ParseError{Err: err}
		var syn *xml.SyntaxError
		if errors.As(err, &syn) {
			perr.Line = syn.Line
		}
		return nil, perr
	}

	reader := newPathReader(rootElement(doc))

	var owners []Owner
	for _, ownerEl := range reader.elements(doc, "reportingOwner") {
		ownerID := reader.first(ownerEl, "reportingOwnerId")
		name := reader.text(ownerID, "rptOwnerName")
		if name == "" {
			name = reader.text(ownerID, "ownerName")
		}
		if name == "" {
			name = "Unknown"
		}
		relationship := reader.first(ownerEl, "reportingOwnerRelationship")
		owners = append(owners, Owner{
			Name:  name,
			Title: reader.text(relationship, "officerTitle"),
		})
	}

	var records []TransactionRecord
	for _, txEl := range reader.elements(doc, "nonDerivativeTransaction") {
		code := reader.text(txEl, "transactionCoding/transactionCode/value")
		date := parseDate(reader.text(txEl, "transactionDate/value"))
		shares := parseNumber(reader.text(txEl, "transactionAmounts/transactionShares/value"))
		price := parseNumber(reader.text(txEl, "transactionAmounts/transactionPricePerShare/value"))
		security := optionalString(reader.text(txEl, "securityTitle/value"))

		for _, owner := range owners {
			records = append(records, TransactionRecord{
				OfficerName:     owner.Name,
				OfficerTitle:    owner.Title,
				TransactionCode: code,
				TransactionDate: date,
				Shares:          shares,
				PricePerShare:   price,
				SecurityTitle:   security,
			})
		}
	}

	return records, nil
}

// pathReader resolves element lookups against the namespace inferred
// from the document root. Built once per document and reused for every
// lookup; documents without a namespace fall through to plain
// local-name paths.
type pathReader struct {
	ns string
}

func newPathReader(root *xmlquery.Node) pathReader {
	if root == nil {
		return pathReader{}
	}
	return pathReader{ns: root.NamespaceURI}
}

func rootElement(doc *xmlquery.Node) *xmlquery.Node {
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.ElementNode {
			return n
		}
	}
	return nil
}

func (r pathReader) step(name string) string {
	if r.ns == "" {
		return name
	}
	return fmt.Sprintf("*[local-name()='%s' and namespace-uri()='%s']", name, r.ns)
}

func (r pathReader) selector(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = r.step(s)
	}
	return strings.Join(segments, "/")
}

// elements collects every element with the given local name anywhere in
// the document.
func (r pathReader) elements(n *xmlquery.Node, name string) []*xmlquery.Node {
	return xmlquery.Find(n, "//"+r.step(name))
}

// first resolves a slash-separated path relative to n, or nil when any
// segment is absent. A nil base node resolves to nil rather than
// erroring, so chained lookups stay flat.
func (r pathReader) first(n *xmlquery.Node, path string) *xmlquery.Node {
	if n == nil {
		return nil
	}
	return xmlquery.FindOne(n, r.selector(path))
}

func (r pathReader) text(n *xmlquery.Node, path string) string {
	el := r.first(n, path)
	if el == nil {
		return ""
	}
	return strings.TrimSpace(el.InnerText())
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	// Some agents report the date with a time suffix; the date part is
	// always the first ten characters.
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

func parseNumber(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return nil
	}
	return &v
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
